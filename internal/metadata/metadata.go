// Package metadata normalizes raw on-disk project metadata into one
// canonical model. Project directories have been written by several
// generations of tooling, so the same concept may appear under different
// keys or shapes. Absent or malformed fields normalize to zero values and
// never fail the parse; only JSON that does not decode at all is an error.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DefaultTitle is used when no usable title is present in the source.
const DefaultTitle = "Untitled Project"

// ErrMalformed marks metadata bytes that do not decode into a JSON object.
var ErrMalformed = errors.New("malformed metadata")

var yearRe = regexp.MustCompile(`^\d{4}$`)

// Link is one canonical external reference.
type Link struct {
	Type  string `json:"type,omitempty"`
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// CaseStudy is the older narrative-framework block.
type CaseStudy struct {
	Problem   string `json:"problem,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Actions   string `json:"actions,omitempty"`
	Results   string `json:"results,omitempty"`
}

// Empty reports whether no field of the block is populated.
func (c CaseStudy) Empty() bool {
	return c.Problem == "" && c.Challenge == "" && c.Actions == "" && c.Results == ""
}

// PCSI is the newer narrative-framework block. It overlaps CaseStudy but is
// kept separate: older and newer metadata generations populate different
// blocks and merging them would lose which one the author wrote.
type PCSI struct {
	Problem   string `json:"problem,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Solution  string `json:"solution,omitempty"`
	Impact    string `json:"impact,omitempty"`
}

// Empty reports whether no field of the block is populated.
func (p PCSI) Empty() bool {
	return p.Problem == "" && p.Challenge == "" && p.Solution == "" && p.Impact == ""
}

// ParsedMetadata is the canonical in-memory form of a project's metadata.
type ParsedMetadata struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Organization string    `json:"organization,omitempty"`
	WorkType     string    `json:"workType,omitempty"`
	Year         *int      `json:"year,omitempty"`
	Role         string    `json:"role,omitempty"`
	Seniority    string    `json:"seniority,omitempty"`
	Categories   []string  `json:"categories"`
	Skills       []string  `json:"skills"`
	Tools        []string  `json:"tools"`
	Tags         []string  `json:"tags"`
	Highlights   []string  `json:"highlights"`
	Links        []Link    `json:"links"`
	NDA          bool      `json:"nda"`
	CoverImage   string    `json:"coverImage,omitempty"`
	CaseStudy    CaseStudy `json:"case"`
	PCSI         PCSI      `json:"pcsi"`
}

// Decode parses raw metadata file bytes. JSON that does not decode into an
// object is a parse error; everything past that point is tolerated.
func Decode(data []byte) (ParsedMetadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ParsedMetadata{}, fmt.Errorf("metadata: parse: %w: %v", ErrMalformed, err)
	}
	return Parse(raw), nil
}

// Parse normalizes an untyped metadata object into the canonical model.
// It is a pure function and never panics on unexpected shapes.
func Parse(raw map[string]any) ParsedMetadata {
	m := ParsedMetadata{
		Title:        stringAt(raw, "title", "name"),
		Summary:      stringAt(raw, "summary", "description"),
		Organization: stringAt(raw, "organization", "client"),
		WorkType:     stringAt(raw, "workType", "work_type"),
		Year:         yearAt(raw, "year"),
		Role:         stringAt(raw, "role"),
		Seniority:    stringAt(raw, "seniority", "level"),
		Categories:   stringList(raw, "categories"),
		Skills:       stringList(raw, "skills"),
		Tools:        stringList(raw, "tools"),
		Tags:         stringList(raw, "tags"),
		Highlights:   stringList(raw, "highlights"),
		Links:        normalizeLinks(raw["links"]),
		CoverImage:   stringAt(raw, "coverImage", "cover_image", "cover"),
	}
	if m.Title == "" {
		m.Title = DefaultTitle
	}

	if privacy, ok := raw["privacy"].(map[string]any); ok {
		m.NDA = toBool(privacy["nda"])
	}

	if block, ok := raw["case"].(map[string]any); ok {
		m.CaseStudy = CaseStudy{
			Problem:   trimmedString(block["problem"]),
			Challenge: trimmedString(block["challenge"]),
			Actions:   trimmedString(block["actions"]),
			Results:   trimmedString(block["results"]),
		}
	}
	if block, ok := raw["pcsi"].(map[string]any); ok {
		m.PCSI = PCSI{
			Problem:   trimmedString(block["problem"]),
			Challenge: trimmedString(block["challenge"]),
			Solution:  trimmedString(block["solution"]),
			Impact:    trimmedString(block["impact"]),
		}
	}

	return m
}

// stringAt returns the first non-empty trimmed string found under the
// candidate keys, probing them in priority order.
func stringAt(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := trimmedString(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func trimmedString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// stringList normalizes an array field. Any non-array input yields an empty
// list; entries are trimmed and empty or non-string entries are dropped.
func stringList(raw map[string]any, key string) []string {
	out := []string{}
	items, ok := raw[key].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s := trimmedString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// yearAt accepts a number or a 4-digit numeric string; anything else is nil.
func yearAt(raw map[string]any, key string) *int {
	switch v := raw[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		y := int(v)
		return &y
	case string:
		s := strings.TrimSpace(v)
		if !yearRe.MatchString(s) {
			return nil
		}
		y := 0
		for _, r := range s {
			y = y*10 + int(r-'0')
		}
		return &y
	default:
		return nil
	}
}

// toBool coerces the loose truthy encodings seen across metadata
// generations: booleans, "true"/"yes"/"1" strings, and non-zero numbers.
func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return t != 0
	default:
		return false
	}
}
