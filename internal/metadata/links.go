package metadata

import "sort"

// Keys probed on a link object for its URL and label. Older generations
// stored links under several names; first match wins.
var (
	linkURLKeys   = []string{"url", "href", "link", "value"}
	linkLabelKeys = []string{"label", "title", "name"}
)

// normalizeLinks folds the three historical link encodings into one
// canonical list:
//
//  1. a bare string: one entry with that URL;
//  2. an array of strings and/or objects: one entry per element;
//  3. an object map keyed by link type ({"live": "...", "repo": {...}}):
//     one entry per key, the key becoming the type unless the entry
//     carries its own.
//
// Entries with no resolvable URL are dropped silently. Map keys are
// visited in sorted order so re-serialization is stable.
func normalizeLinks(v any) []Link {
	out := []Link{}
	switch links := v.(type) {
	case string:
		if s := trimmedString(links); s != "" {
			out = append(out, Link{URL: s})
		}
	case []any:
		for _, el := range links {
			switch entry := el.(type) {
			case string:
				if s := trimmedString(entry); s != "" {
					out = append(out, Link{URL: s})
				}
			case map[string]any:
				if l, ok := linkFromMap(entry, ""); ok {
					out = append(out, l)
				}
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(links))
		for k := range links {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch entry := links[k].(type) {
			case string:
				if s := trimmedString(entry); s != "" {
					out = append(out, Link{Type: k, URL: s})
				}
			case map[string]any:
				if l, ok := linkFromMap(entry, k); ok {
					out = append(out, l)
				}
			}
		}
	}
	return out
}

// linkFromMap extracts a Link from an object entry. defaultType is used
// when the entry does not declare its own type. ok is false when no URL
// could be resolved.
func linkFromMap(entry map[string]any, defaultType string) (Link, bool) {
	l := Link{Type: defaultType}
	for _, k := range linkURLKeys {
		if s := trimmedString(entry[k]); s != "" {
			l.URL = s
			break
		}
	}
	if l.URL == "" {
		return Link{}, false
	}
	if t := trimmedString(entry["type"]); t != "" {
		l.Type = t
	}
	for _, k := range linkLabelKeys {
		if s := trimmedString(entry[k]); s != "" {
			l.Label = s
			break
		}
	}
	return l, true
}
