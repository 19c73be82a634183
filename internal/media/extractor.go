package media

import (
	"strings"
	"unicode"
)

// RefKind is the storage convention a stored media value follows.
type RefKind int

const (
	RefEmpty RefKind = iota
	RefRemoteURL
	RefLegacyPath
	RefBareFilename
)

func (k RefKind) String() string {
	switch k {
	case RefRemoteURL:
		return "remote_url"
	case RefLegacyPath:
		return "legacy_path"
	case RefBareFilename:
		return "bare_filename"
	default:
		return "empty"
	}
}

// IsAbsoluteURL reports whether v carries an explicit http(s) scheme.
// Leading whitespace is ignored.
func IsAbsoluteURL(v string) bool {
	v = trimLeadingSpace(v)
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// Classify detects the form of a stored value. Order matters: URL first,
// then path separator, then bare filename.
func Classify(v string) RefKind {
	if strings.TrimSpace(v) == "" {
		return RefEmpty
	}
	if IsAbsoluteURL(v) {
		return RefRemoteURL
	}
	if strings.Contains(v, "/") {
		return RefLegacyPath
	}
	return RefBareFilename
}

// ExtractFilename reduces a stored value to the filename persisted by the
// backend. Absolute URLs are opaque CDN identifiers and come back unchanged.
func ExtractFilename(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	if IsAbsoluteURL(v) {
		return trimLeadingSpace(v)
	}
	if i := strings.LastIndex(v, "/"); i >= 0 {
		return strings.TrimSpace(v[i+1:])
	}
	return strings.TrimSpace(v)
}

// ExtractFilenames applies ExtractFilename element-wise, dropping empty
// results. Order is kept and duplicates are not removed.
func ExtractFilenames(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if name := ExtractFilename(item); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func trimLeadingSpace(v string) string {
	return strings.TrimLeftFunc(v, unicode.IsSpace)
}
