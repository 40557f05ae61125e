package entity

// Document describes one entry of the caller-supplied document context.
// The id is opaque to the engine; the document itself lives with an
// external store collaborator.
type Document struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
