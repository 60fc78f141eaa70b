package metadata

import (
	"encoding/json"
	"fmt"
)

// metadataDoc is the canonical on-disk shape. Parsed metadata is written
// back in this field order regardless of which generation the source
// file used, so a round-trip through an edit always yields the same
// layout.
type metadataDoc struct {
	Title        string      `json:"title"`
	Summary      string      `json:"summary,omitempty"`
	Organization string      `json:"organization,omitempty"`
	WorkType     string      `json:"workType,omitempty"`
	Year         *int        `json:"year,omitempty"`
	Role         string      `json:"role,omitempty"`
	Seniority    string      `json:"seniority,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Skills       []string    `json:"skills,omitempty"`
	Tools        []string    `json:"tools,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Highlights   []string    `json:"highlights,omitempty"`
	Links        []Link      `json:"links,omitempty"`
	Privacy      *privacyDoc `json:"privacy,omitempty"`
	CoverImage   string      `json:"coverImage,omitempty"`
	CaseStudy    *CaseStudy  `json:"case,omitempty"`
	PCSI         *PCSI       `json:"pcsi,omitempty"`
}

type privacyDoc struct {
	NDA bool `json:"nda"`
}

// MarshalPretty renders the canonical metadata file form: two-space
// indentation, stable field order, empty fields omitted, trailing
// newline.
func (m ParsedMetadata) MarshalPretty() ([]byte, error) {
	doc := metadataDoc{
		Title:        m.Title,
		Summary:      m.Summary,
		Organization: m.Organization,
		WorkType:     m.WorkType,
		Year:         m.Year,
		Role:         m.Role,
		Seniority:    m.Seniority,
		Categories:   m.Categories,
		Skills:       m.Skills,
		Tools:        m.Tools,
		Tags:         m.Tags,
		Highlights:   m.Highlights,
		Links:        m.Links,
		CoverImage:   m.CoverImage,
	}
	if m.NDA {
		doc.Privacy = &privacyDoc{NDA: true}
	}
	if !m.CaseStudy.Empty() {
		cs := m.CaseStudy
		doc.CaseStudy = &cs
	}
	if !m.PCSI.Empty() {
		p := m.PCSI
		doc.PCSI = &p
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("metadata: encode: %w", err)
	}
	return append(b, '\n'), nil
}
