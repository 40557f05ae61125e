package citation

import (
	"errors"
	"testing"

	"ai-docchat-be/internal/entity"
)

func intPtr(v int) *int { return &v }

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
		wantDoc   string
		wantPage  *int
	}{
		{
			name:      "no markers",
			text:      "Plain answer with no citations.",
			wantCount: 0,
		},
		{
			name:      "full marker",
			text:      "See [cite:doc-1:12] for details.",
			wantCount: 1,
			wantDoc:   "doc-1",
			wantPage:  intPtr(12),
		},
		{
			name:      "marker without page",
			text:      "See [cite:doc-1] for details.",
			wantCount: 1,
			wantDoc:   "doc-1",
		},
		{
			name:      "bare marker",
			text:      "See [cite] for details.",
			wantCount: 1,
		},
		{
			name:      "multiple markers",
			text:      "[cite:a:1] and [cite:b:2] and [cite:a:1]",
			wantCount: 3,
			wantDoc:   "a",
			wantPage:  intPtr(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markers := ParseMarkers(tt.text)

			if len(markers) != tt.wantCount {
				t.Fatalf("marker count = %d, want %d", len(markers), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}

			m := markers[0]
			if m.DocumentId != tt.wantDoc {
				t.Errorf("DocumentId = %q, want %q", m.DocumentId, tt.wantDoc)
			}
			if (m.Page == nil) != (tt.wantPage == nil) {
				t.Fatalf("Page = %v, want %v", m.Page, tt.wantPage)
			}
			if m.Page != nil && *m.Page != *tt.wantPage {
				t.Errorf("Page = %d, want %d", *m.Page, *tt.wantPage)
			}
		})
	}
}

func TestResolveFallback(t *testing.T) {
	docs := []entity.Document{
		{Id: "d1", Name: "report.docx", Type: "docx"},
		{Id: "d2", Name: "manual.pdf", Type: "pdf"},
		{Id: "d3", Name: "notes.txt", Type: "txt"},
	}

	tests := []struct {
		name    string
		marker  Marker
		docs    []entity.Document
		wantDoc string
		wantErr error
	}{
		{
			name:    "explicit match wins",
			marker:  Marker{DocumentId: "d3", Page: intPtr(4)},
			docs:    docs,
			wantDoc: "d3",
		},
		{
			name:    "unknown reference falls back to primary",
			marker:  Marker{DocumentId: "ghost"},
			docs:    docs,
			wantDoc: "d2",
		},
		{
			name:    "bare marker uses first pdf-like document",
			marker:  Marker{},
			docs:    docs,
			wantDoc: "d2",
		},
		{
			name:    "no pdf-like uses first document",
			marker:  Marker{},
			docs:    []entity.Document{{Id: "a", Type: "txt"}, {Id: "b", Type: "md"}},
			wantDoc: "a",
		},
		{
			name:    "empty context fails",
			marker:  Marker{},
			docs:    nil,
			wantErr: ErrNoDocumentAvailable,
		},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Resolve(tt.marker, tt.docs)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.DocumentId != tt.wantDoc {
				t.Errorf("DocumentId = %q, want %q", c.DocumentId, tt.wantDoc)
			}
		})
	}
}

func TestResolveTextRewritesAndDedups(t *testing.T) {
	docs := []entity.Document{
		{Id: "d1", Name: "manual.pdf", Type: "pdf"},
		{Id: "d2", Name: "appendix.txt", Type: "txt"},
	}

	text := "First [cite:d1:3], then [cite:d2], then [cite:d1:3] again."
	r := NewResolver()

	out, citations, err := r.ResolveText(text, nil, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "First [1], then [2], then [1] again."
	if out != want {
		t.Errorf("rewritten text = %q, want %q", out, want)
	}

	if len(citations) != 2 {
		t.Fatalf("citation count = %d, want 2", len(citations))
	}
	if citations[0].DocumentId != "d1" || citations[0].Label != "[1]" {
		t.Errorf("citations[0] = %+v", citations[0])
	}
	if citations[0].Page == nil || *citations[0].Page != 3 {
		t.Errorf("citations[0].Page = %v, want 3", citations[0].Page)
	}
	if citations[1].DocumentId != "d2" || citations[1].Label != "[2]" {
		t.Errorf("citations[1] = %+v", citations[1])
	}
}

func TestResolveTextExtraMarkers(t *testing.T) {
	docs := []entity.Document{{Id: "d1", Name: "manual.pdf", Type: "pdf"}}
	r := NewResolver()

	out, citations, err := r.ResolveText("No inline markers here.", []Marker{{Raw: "[cite:d1:7]", DocumentId: "d1", Page: intPtr(7)}}, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "No inline markers here." {
		t.Errorf("text changed: %q", out)
	}
	if len(citations) != 1 || citations[0].DocumentId != "d1" {
		t.Fatalf("citations = %+v, want one for d1", citations)
	}
}

func TestResolveTextNoDocuments(t *testing.T) {
	r := NewResolver()

	out, citations, err := r.ResolveText("See [cite:d1:3].", nil, nil)
	if !errors.Is(err, ErrNoDocumentAvailable) {
		t.Fatalf("err = %v, want ErrNoDocumentAvailable", err)
	}
	if out != "See [cite:d1:3]." {
		t.Errorf("text was rewritten on failure: %q", out)
	}
	if citations != nil {
		t.Errorf("citations = %+v, want none", citations)
	}
}
