package media

import "strings"

// AssetKind selects the folder layout used for a resolved asset.
type AssetKind int

const (
	AssetModel AssetKind = iota
	AssetInterior
	AssetCategory
)

const (
	DefaultBasePrefix = "/images/"
	placeholderFile   = "placeholder.jpg"
	cloudinaryHost    = "cloudinary.com"
)

// Resolver turns a stored media reference into a browser-loadable URL.
// It performs no I/O and is safe for concurrent use.
type Resolver struct {
	base   string
	tables Tables
}

func NewResolver(basePrefix string, tables Tables) *Resolver {
	return &Resolver{
		base:   normalizeBase(basePrefix),
		tables: tables,
	}
}

func normalizeBase(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultBasePrefix
	}
	if !strings.HasPrefix(p, "/") && !IsAbsoluteURL(p) {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (r *Resolver) BasePrefix() string { return r.base }

func (r *Resolver) Tables() Tables { return r.tables }

// Resolve computes the URL for v owned by the entity called name.
// An empty result means there is nothing to show, which includes local
// category images of a category without a name.
func (r *Resolver) Resolve(kind AssetKind, name, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	if IsAbsoluteURL(v) {
		return trimLeadingSpace(v)
	}
	v = strings.TrimSpace(v)
	if strings.Contains(v, cloudinaryHost) {
		if strings.HasPrefix(v, "//") {
			return "https:" + v
		}
		return "https://" + v
	}
	if strings.HasPrefix(v, r.base) {
		return v
	}

	filename := EncodeFilename(ExtractFilename(v))
	if filename == "" {
		return ""
	}

	switch kind {
	case AssetCategory:
		// Local category images live under the category's name.
		if strings.TrimSpace(name) == "" {
			return ""
		}
		return r.base + "categories/" + strings.TrimSpace(name) + "/" + filename
	case AssetInterior:
		return r.base + r.tables.Folder(name) + "/Interior/" + filename
	default:
		return r.base + r.tables.Folder(name) + "/" + filename
	}
}

func (r *Resolver) ResolveModel(name, v string) string {
	return r.Resolve(AssetModel, name, v)
}

func (r *Resolver) ResolveInterior(name, v string) string {
	return r.Resolve(AssetInterior, name, v)
}

func (r *Resolver) ResolveCategory(name, v string) string {
	return r.Resolve(AssetCategory, name, v)
}

// Placeholder is the generic asset rendered when nothing else is available.
func (r *Resolver) Placeholder() string {
	return r.base + placeholderFile
}

// FallbackFor resolves the model's designated fallback image. Models
// without one yield an empty string.
func (r *Resolver) FallbackFor(name string) string {
	f, ok := r.tables.FallbackFile(name)
	if !ok {
		return ""
	}
	return r.ResolveModel(name, f)
}

// IsPlaceholder reports whether v is the generic placeholder URL.
func (r *Resolver) IsPlaceholder(v string) bool {
	return strings.TrimSpace(v) == r.Placeholder()
}

// EncodeFilename escapes spaces for use in a URL path. Other characters
// are passed through.
func EncodeFilename(name string) string {
	return strings.ReplaceAll(name, " ", "%20")
}

// DecodeFilename reverses EncodeFilename.
func DecodeFilename(name string) string {
	return strings.ReplaceAll(name, "%20", " ")
}
