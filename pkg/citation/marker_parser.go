package citation

import (
	"regexp"
	"strconv"
	"strings"
)

// Markers are emitted inline by the generation collaborator:
//
//	[cite:<documentId>]        cite a document
//	[cite:<documentId>:<page>] cite a specific page
//	[cite]                     cite without an explicit document
//
// The document id is opaque; anything up to the next ':' or ']' is accepted.
var markerPattern = regexp.MustCompile(`\[cite(?::([^:\]\s]+))?(?::(\d+))?\]`)

// Marker is one raw citation marker lifted out of generated text.
type Marker struct {
	Raw        string
	DocumentId string
	Page       *int
}

// ParseMarkers extracts all citation markers from text in order of
// appearance.
func ParseMarkers(text string) []Marker {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	markers := make([]Marker, 0, len(matches))
	for _, m := range matches {
		marker := Marker{Raw: m[0], DocumentId: m[1]}
		if m[2] != "" {
			if page, err := strconv.Atoi(m[2]); err == nil {
				marker.Page = &page
			}
		}
		markers = append(markers, marker)
	}
	return markers
}

// ParseMarker parses a single raw marker string. Non-marker input is
// treated as a bare citation with no explicit document.
func ParseMarker(raw string) Marker {
	raw = strings.TrimSpace(raw)
	if m := markerPattern.FindStringSubmatch(raw); m != nil {
		marker := Marker{Raw: m[0], DocumentId: m[1]}
		if m[2] != "" {
			if page, err := strconv.Atoi(m[2]); err == nil {
				marker.Page = &page
			}
		}
		return marker
	}
	return Marker{Raw: raw}
}
