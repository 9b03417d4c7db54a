// Package safeget implements the safe nested-property accessor used
// everywhere a bare identifier or dotted path is resolved against the
// current document (spec §2.1, §4.2). It never panics: a missing field,
// an out-of-range index, or a non-integer index all yield Null.
package safeget

import (
	"strconv"
	"strings"

	"github.com/jsonstream/engine/internal/value"
)

// PathPart is one step of a parsed field path: a plain field name, or a
// bracketed index/key (`a[0]`, `a["key"]`).
type PathPart struct {
	Field string // set when this part is a plain field access
	Index *int   // set when this part is a bracketed numeric index
	Key   string // set when this part is a bracketed string key
}

// ParsePath splits "a.b[0].c['key']" into ordered parts. It never errors;
// malformed bracket content is folded into the surrounding field name so
// that Get degrades to Null rather than failing the whole pipeline.
func ParsePath(path string) []PathPart {
	var parts []PathPart
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		parts = append(parts, parseSegment(segment)...)
	}
	return parts
}

func parseSegment(segment string) []PathPart {
	var parts []PathPart
	for len(segment) > 0 {
		br := strings.IndexByte(segment, '[')
		if br == -1 {
			parts = append(parts, PathPart{Field: segment})
			return parts
		}
		if br > 0 {
			parts = append(parts, PathPart{Field: segment[:br]})
		}
		end := strings.IndexByte(segment[br:], ']')
		if end == -1 {
			// Unterminated bracket: treat the rest as a literal field name.
			parts = append(parts, PathPart{Field: segment[br:]})
			return parts
		}
		end += br
		content := strings.TrimSpace(segment[br+1 : end])
		parts = append(parts, bracketPart(content))
		segment = segment[end+1:]
	}
	return parts
}

func bracketPart(content string) PathPart {
	if len(content) >= 2 && (content[0] == '\'' || content[0] == '"') && content[len(content)-1] == content[0] {
		return PathPart{Key: content[1 : len(content)-1]}
	}
	if n, err := strconv.Atoi(content); err == nil {
		return PathPart{Index: &n}
	}
	// Non-integer/quote-less bracket content never matches: boundary case
	// in spec §8 ("non-integer index yields null").
	return PathPart{Field: ""}
}

// Get resolves path against doc. Missing fields, non-object/array
// traversal, and invalid indices all yield Null, never an error.
func Get(doc value.Value, path string) value.Value {
	return GetParts(doc, ParsePath(path))
}

func GetParts(doc value.Value, parts []PathPart) value.Value {
	cur := doc
	for _, p := range parts {
		switch {
		case p.Field != "":
			obj, ok := cur.AsObject()
			if !ok {
				return value.Null()
			}
			v, ok := obj.Get(p.Field)
			if !ok {
				return value.Null()
			}
			cur = v
		case p.Key != "":
			obj, ok := cur.AsObject()
			if !ok {
				return value.Null()
			}
			v, ok := obj.Get(p.Key)
			if !ok {
				return value.Null()
			}
			cur = v
		case p.Index != nil:
			arr, ok := cur.AsArray()
			if !ok {
				return value.Null()
			}
			idx := *p.Index
			if idx < 0 {
				idx += len(arr)
			}
			if idx < 0 || idx >= len(arr) {
				return value.Null()
			}
			cur = arr[idx]
		default:
			return value.Null()
		}
	}
	return cur
}

// Index applies a single dynamic index/key (from an evaluated `a[expr]`
// sub-expression, spec §4.2) to a container value.
func Index(container value.Value, key value.Value) value.Value {
	if n, ok := key.AsNumber(); ok {
		arr, ok := container.AsArray()
		if !ok {
			return value.Null()
		}
		idx := int(n)
		if float64(idx) != n {
			return value.Null()
		}
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return value.Null()
		}
		return arr[idx]
	}
	if s, ok := key.AsString(); ok {
		obj, ok := container.AsObject()
		if !ok {
			return value.Null()
		}
		v, ok := obj.Get(s)
		if !ok {
			return value.Null()
		}
		return v
	}
	return value.Null()
}
