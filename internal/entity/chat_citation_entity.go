package entity

// Citation links a span of assistant output to a document in the caller's
// context. Label is the ordinal display token rendered inline ("[1]").
type Citation struct {
	Label      string `json:"label"`
	DocumentId string `json:"document_id"`
	Page       *int   `json:"page,omitempty"`
}
