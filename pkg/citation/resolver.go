package citation

import (
	"errors"
	"fmt"
	"strings"

	"ai-docchat-be/internal/entity"
)

// ErrNoDocumentAvailable is returned when a citation cannot be anchored to
// any document. Callers finalize the message without citations rather than
// failing the stream.
var ErrNoDocumentAvailable = errors.New("no document available for citation")

// Resolver maps raw citation markers to concrete (document, page) pairs
// using the caller-supplied document context. Stateless.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve resolves a single marker against the available documents.
//
// Policy: an explicit document reference that exists in the context wins.
// Otherwise the primary document is selected. The resolver never invents a
// document id; with an empty context it fails with ErrNoDocumentAvailable.
func (r *Resolver) Resolve(marker Marker, docs []entity.Document) (entity.Citation, error) {
	if marker.DocumentId != "" {
		for _, d := range docs {
			if d.Id == marker.DocumentId {
				return entity.Citation{DocumentId: d.Id, Page: marker.Page}, nil
			}
		}
	}

	primary, ok := primaryDocument(docs)
	if !ok {
		return entity.Citation{}, ErrNoDocumentAvailable
	}
	return entity.Citation{DocumentId: primary.Id, Page: marker.Page}, nil
}

// ResolveText resolves every marker found in text (plus any markers
// delivered out-of-band by the generator), assigns ordinal display labels
// and rewrites the inline markers to those labels.
//
// Citations are deduplicated by (document, page); repeated markers reuse
// the existing label.
func (r *Resolver) ResolveText(text string, extra []Marker, docs []entity.Document) (string, []entity.Citation, error) {
	markers := ParseMarkers(text)

	var citations []entity.Citation
	labels := make(map[string]string)

	assign := func(m Marker) (string, error) {
		c, err := r.Resolve(m, docs)
		if err != nil {
			return "", err
		}
		key := citationKey(c)
		if label, ok := labels[key]; ok {
			return label, nil
		}
		c.Label = fmt.Sprintf("[%d]", len(citations)+1)
		labels[key] = c.Label
		citations = append(citations, c)
		return c.Label, nil
	}

	out := text
	for _, m := range markers {
		label, err := assign(m)
		if err != nil {
			return text, nil, err
		}
		out = strings.Replace(out, m.Raw, label, 1)
	}

	for _, m := range extra {
		if _, err := assign(m); err != nil {
			return text, nil, err
		}
	}

	return out, citations, nil
}

// primaryDocument picks the fallback citation target: the first paginated
// (PDF-like) document, else the first document.
func primaryDocument(docs []entity.Document) (entity.Document, bool) {
	if len(docs) == 0 {
		return entity.Document{}, false
	}
	for _, d := range docs {
		if isPaginated(d) {
			return d, true
		}
	}
	return docs[0], true
}

func isPaginated(d entity.Document) bool {
	t := strings.ToLower(d.Type)
	if t == "pdf" || strings.Contains(t, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(d.Name), ".pdf")
}

func citationKey(c entity.Citation) string {
	if c.Page != nil {
		return fmt.Sprintf("%s#%d", c.DocumentId, *c.Page)
	}
	return c.DocumentId
}
