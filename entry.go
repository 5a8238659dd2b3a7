package easyad

import (
	"encoding/base64"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
)

// DirectoryEntry is a normalized search result: the entry's DN plus a map
// of decoded attribute values. Single-valued attributes appear as scalars,
// multi-valued attributes as []any in server order. Text values are
// strings; binary values are []byte, or base64 strings when decoded with
// SerializationSafe.
type DirectoryEntry struct {
	DN         string
	Attributes map[string]any
}

// DecodeOptions controls attribute value decoding.
type DecodeOptions struct {
	// SerializationSafe encodes binary values as base64 strings so the
	// resulting attribute map is JSON-encodable.
	SerializationSafe bool
}

// DecodeEntries normalizes raw LDAP entries into DirectoryEntry values.
// Nil entries are skipped; entry order is preserved.
func DecodeEntries(entries []*ldap.Entry, opts DecodeOptions) []*DirectoryEntry {
	out := make([]*DirectoryEntry, 0, len(entries))
	for _, raw := range entries {
		if raw == nil {
			continue
		}

		entry := &DirectoryEntry{
			DN:         raw.DN,
			Attributes: make(map[string]any, len(raw.Attributes)),
		}
		for _, attr := range raw.Attributes {
			values := attributeValues(attr, opts.SerializationSafe)
			if len(values) == 1 {
				entry.Attributes[attr.Name] = values[0]
			} else {
				entry.Attributes[attr.Name] = values
			}
		}
		out = append(out, entry)
	}
	return out
}

// attributeValues decodes each value of an attribute. ByteValues is
// preferred; entries constructed without raw bytes fall back to the string
// values.
func attributeValues(attr *ldap.EntryAttribute, serializationSafe bool) []any {
	if len(attr.ByteValues) == 0 && len(attr.Values) > 0 {
		values := make([]any, 0, len(attr.Values))
		for _, v := range attr.Values {
			values = append(values, v)
		}
		return values
	}

	values := make([]any, 0, len(attr.ByteValues))
	for _, b := range attr.ByteValues {
		values = append(values, decodeValue(b, serializationSafe))
	}
	return values
}

func decodeValue(b []byte, serializationSafe bool) any {
	if utf8.Valid(b) {
		return string(b)
	}
	if serializationSafe {
		return base64.StdEncoding.EncodeToString(b)
	}
	return append([]byte(nil), b...)
}

// Has reports whether the entry carries the named attribute. Lookup is
// case-insensitive, matching LDAP attribute name semantics.
func (e *DirectoryEntry) Has(name string) bool {
	_, ok := e.lookup(name)
	return ok
}

// GetString returns the attribute's value as a string. Multi-valued
// attributes yield their first string value; missing or non-string values
// yield the empty string.
func (e *DirectoryEntry) GetString(name string) string {
	v, ok := e.lookup(name)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	return ""
}

// GetStrings returns all string values of the attribute, in stored order.
func (e *DirectoryEntry) GetStrings(name string) []string {
	v, ok := e.lookup(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (e *DirectoryEntry) lookup(name string) (any, bool) {
	if v, ok := e.Attributes[name]; ok {
		return v, true
	}
	for k, v := range e.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// set replaces an attribute value, reusing the stored key when one already
// exists under a different case.
func (e *DirectoryEntry) set(name string, value any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any, 1)
	}
	if _, ok := e.Attributes[name]; !ok {
		for k := range e.Attributes {
			if strings.EqualFold(k, name) {
				name = k
				break
			}
		}
	}
	e.Attributes[name] = value
}

// sortAttribute orders a multi-valued string attribute case-insensitively
// in place. Scalar and missing attributes are left untouched.
func (e *DirectoryEntry) sortAttribute(name string) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	values, ok := v.([]any)
	if !ok || len(values) < 2 {
		return
	}

	sorted := make([]string, 0, len(values))
	for _, item := range values {
		s, ok := item.(string)
		if !ok {
			return
		}
		sorted = append(sorted, s)
	}
	sortFold(sorted)

	out := make([]any, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, s)
	}
	e.set(name, out)
}

// sortFold sorts strings case-insensitively, falling back to a byte-wise
// comparison for strings that differ only in case.
func sortFold(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		a, b := strings.ToLower(values[i]), strings.ToLower(values[j])
		if a == b {
			return values[i] < values[j]
		}
		return a < b
	})
}
