package media

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Ref is a single stored media reference. Any JSON value that is not a
// string (null, numbers, objects) decodes to the empty reference.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*r = ""
		return nil
	}
	*r = Ref(s)
	return nil
}

func (r Ref) String() string { return string(r) }

// List is an ordered list of stored media references. The backend has
// written it in several shapes over time:
//
//	["a.jpg", {"filename": "b.jpg"}]
//	"[\"a.jpg\",\"b.jpg\"]"
//	"a.jpg,b.jpg"
//
// All of them decode to plain strings; empty elements are dropped.
type List []string

func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			*l = nil
			return nil
		}
		out := make(List, 0, len(raw))
		for _, item := range raw {
			if s := itemString(item); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*l = nil
			return nil
		}
		*l = StringToList(s)
	default:
		*l = nil
	}
	return nil
}

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// StringToList decodes a list that was persisted as a single string, either
// a JSON array or a comma-separated value.
func StringToList(s string) List {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var l List
		if err := l.UnmarshalJSON([]byte(s)); err == nil && l != nil {
			return l
		}
	}
	var out List
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// itemString matches one list element: a bare string or a record carrying
// the reference under filename, url, path or src.
func itemString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var rec struct {
		Filename Ref `json:"filename"`
		URL      Ref `json:"url"`
		Path     Ref `json:"path"`
		Src      Ref `json:"src"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ""
	}
	for _, v := range []Ref{rec.Filename, rec.URL, rec.Path, rec.Src} {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
