package catalog

import (
	"errors"
	"slices"
	"strings"

	"boatcatalog/internal/media"
)

var ErrUnknownMediaField = errors.New("unknown media field")

// Transformer converts backend records into view models and edited view
// state back into backend write payloads. It holds no mutable state.
type Transformer struct {
	resolver *media.Resolver
}

func NewTransformer(resolver *media.Resolver) *Transformer {
	return &Transformer{resolver: resolver}
}

func (t *Transformer) Resolver() *media.Resolver { return t.resolver }

// source is one lazily evaluated candidate of a fallback chain.
type source func() string

// firstOf returns the first candidate that yields a non-empty URL.
func firstOf(chain ...source) string {
	for _, s := range chain {
		if v := s(); v != "" {
			return v
		}
	}
	return ""
}

func (t *Transformer) stored(kind media.AssetKind, name string, ref media.Ref) source {
	return func() string { return t.resolver.Resolve(kind, name, string(ref)) }
}

func (t *Transformer) fallback(name string) source {
	return func() string { return t.resolver.FallbackFor(name) }
}

func (t *Transformer) placeholder() source {
	return t.resolver.Placeholder
}

// ToViewModel normalizes a model for rendering. DisplayName is derived
// without a category; use ToViewModelInCategory when the category is known.
func (t *Transformer) ToViewModel(m Model) ModelView {
	return t.ToViewModelInCategory(m, "")
}

// ToViewModelInCategory is ToViewModel with the owning category's name used
// for display names of models missing from the display-name table.
func (t *Transformer) ToViewModelInCategory(m Model, categoryName string) ModelView {
	name := strings.TrimSpace(m.Name)

	v := ModelView{
		ID:               m.ID,
		Name:             m.Name,
		DisplayName:      t.resolver.Tables().DisplayName(name, categoryName),
		CategoryID:       m.CategoryID,
		Title:            m.Title,
		Description:      m.Description,
		ShortDescription: m.ShortDescription,
		Specs:            copySpecs(m.Specs),
		StandardFeatures: append([]string{}, m.StandardFeatures...),
		OptionalFeatures: append([]OptionalFeature{}, m.OptionalFeatures...),
	}

	v.Image = firstOf(
		t.stored(media.AssetModel, name, m.ImageFile),
		t.fallback(name),
		t.placeholder(),
	)
	v.HeroImage = firstOf(
		t.stored(media.AssetModel, name, m.HeroImageFile),
		t.stored(media.AssetModel, name, m.ImageFile),
		t.fallback(name),
		t.placeholder(),
	)
	v.ContentImage = firstOf(
		t.stored(media.AssetModel, name, m.ContentImageFile),
		t.stored(media.AssetModel, name, m.ImageFile),
		t.fallback(name),
		t.placeholder(),
	)
	if interior := t.resolver.ResolveInterior(name, string(m.InteriorMainImage)); interior != "" {
		v.InteriorMainImage = &interior
	}

	v.GalleryFiles = t.resolveList(media.AssetModel, name, m.GalleryFiles)
	if len(v.GalleryFiles) == 0 {
		v.GalleryFiles = []string{v.Image}
	}
	v.InteriorFiles = t.resolveList(media.AssetInterior, name, m.InteriorFiles)

	v.VideoFiles = make([]string, 0, len(m.VideoFiles))
	v.Videos = make([]Video, 0, len(m.VideoFiles))
	for _, ref := range m.VideoFiles {
		if media.IsYouTubeRef(ref) {
			v.VideoFiles = append(v.VideoFiles, ref)
			v.Videos = append(v.Videos, Video{
				Kind:     VideoYouTube,
				Src:      ref,
				EmbedURL: media.YouTubeEmbedURL(ref),
			})
			continue
		}
		if u := t.resolver.ResolveModel(name, ref); u != "" {
			v.VideoFiles = append(v.VideoFiles, u)
			v.Videos = append(v.Videos, Video{Kind: VideoFile, Src: u})
		}
	}

	return v
}

func (t *Transformer) resolveList(kind media.AssetKind, name string, refs media.List) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u := t.resolver.Resolve(kind, name, ref); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ToBackendPayload reduces every media field to the canonical value the
// backend stores: a filename, or an untouched absolute URL. Applying it to
// its own output changes nothing.
func (t *Transformer) ToBackendPayload(m Model) Model {
	out := m
	out.Specs = copySpecs(m.Specs)
	out.StandardFeatures = append(StandardFeatures{}, m.StandardFeatures...)
	out.OptionalFeatures = append(OptionalFeatures{}, m.OptionalFeatures...)

	out.ImageFile = media.Ref(t.canonical(string(m.ImageFile)))
	out.HeroImageFile = media.Ref(t.canonical(string(m.HeroImageFile)))
	out.ContentImageFile = media.Ref(t.canonical(string(m.ContentImageFile)))
	out.InteriorMainImage = media.Ref(t.canonical(string(m.InteriorMainImage)))

	out.GalleryFiles = t.canonicalList(m.GalleryFiles, false)
	out.InteriorFiles = t.canonicalList(m.InteriorFiles, false)
	out.VideoFiles = t.canonicalList(m.VideoFiles, true)
	return out
}

// ApplyEdits merges an edited view onto the stored record it was rendered
// from. A media slot whose edited value still equals what the view showed
// keeps its stored value, so fallbacks, the placeholder and the image
// substituted into empty hero, content and gallery slots never become
// stored data. The result still carries resolved URLs for changed slots;
// pass it through ToBackendPayload before writing.
func (t *Transformer) ApplyEdits(stored Model, edits ModelView) Model {
	shown := t.ToViewModel(stored)
	out := edits.Edits()

	if edits.Image == shown.Image {
		out.ImageFile = stored.ImageFile
	}
	if edits.HeroImage == shown.HeroImage {
		out.HeroImageFile = stored.HeroImageFile
	}
	if edits.ContentImage == shown.ContentImage {
		out.ContentImageFile = stored.ContentImageFile
	}
	if optionalEqual(edits.InteriorMainImage, shown.InteriorMainImage) {
		out.InteriorMainImage = stored.InteriorMainImage
	}
	if slices.Equal(edits.GalleryFiles, shown.GalleryFiles) {
		out.GalleryFiles = stored.GalleryFiles
	}
	if slices.Equal(edits.InteriorFiles, shown.InteriorFiles) {
		out.InteriorFiles = stored.InteriorFiles
	}
	if slices.Equal(edits.VideoFiles, shown.VideoFiles) {
		out.VideoFiles = stored.VideoFiles
	}
	return out
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ToCategoryView resolves a category's images and attaches the models whose
// CategoryID matches the category's ID.
func (t *Transformer) ToCategoryView(c Category, models []Model) CategoryView {
	name := strings.TrimSpace(c.Name)
	v := CategoryView{
		ID:          c.ID,
		Name:        c.Name,
		MainGroup:   ParseMainGroup(string(c.MainGroup)),
		Description: c.Description,
		Models:      make([]ModelView, 0),
	}

	if image := t.resolver.ResolveCategory(name, string(c.Image)); image != "" {
		v.Image = &image
	}
	if hero := t.resolver.ResolveCategory(name, string(c.HeroImage)); hero != "" {
		v.HeroImage = &hero
	} else if v.Image != nil {
		hero := *v.Image
		v.HeroImage = &hero
	}

	if c.ID == "" {
		return v
	}
	for _, m := range models {
		if m.CategoryID == c.ID {
			v.Models = append(v.Models, t.ToViewModelInCategory(m, name))
		}
	}
	return v
}

// ToCategoryPayload is ToBackendPayload for categories.
func (t *Transformer) ToCategoryPayload(c Category) Category {
	out := c
	out.MainGroup = ParseMainGroup(string(c.MainGroup))
	out.Image = media.Ref(t.canonical(string(c.Image)))
	out.HeroImage = media.Ref(t.canonical(string(c.HeroImage)))
	return out
}

// ApplyUpload stores an upload's reference in the named media field of m.
// Scalar fields are replaced, list fields are appended to.
func ApplyUpload(m *Model, field, ref string) error {
	r := media.Ref(ref)
	switch field {
	case "imageFile":
		m.ImageFile = r
	case "heroImageFile":
		m.HeroImageFile = r
	case "contentImageFile":
		m.ContentImageFile = r
	case "interiorMainImage":
		m.InteriorMainImage = r
	case "galleryFiles":
		m.GalleryFiles = append(m.GalleryFiles, ref)
	case "interiorFiles":
		m.InteriorFiles = append(m.InteriorFiles, ref)
	case "videoFiles":
		m.VideoFiles = append(m.VideoFiles, ref)
	default:
		return ErrUnknownMediaField
	}
	return nil
}

// IsMediaField reports whether ApplyUpload accepts field.
func IsMediaField(field string) bool {
	return ApplyUpload(&Model{}, field, "") == nil
}

// canonical reduces one stored or resolved value to its write form.
// Scheme-less Cloudinary hosts are repaired rather than cut down to a
// filename, and the generic placeholder is never written back.
func (t *Transformer) canonical(v string) string {
	if strings.TrimSpace(v) == "" || t.resolver.IsPlaceholder(v) {
		return ""
	}
	if !media.IsAbsoluteURL(v) && strings.Contains(v, "cloudinary.com") {
		return t.resolver.ResolveModel("", v)
	}
	name := media.ExtractFilename(v)
	if media.IsAbsoluteURL(name) {
		return name
	}
	return strings.TrimSpace(media.DecodeFilename(name))
}

func (t *Transformer) canonicalList(refs media.List, keepYouTube bool) media.List {
	out := make(media.List, 0, len(refs))
	for _, ref := range refs {
		if keepYouTube && media.IsYouTubeRef(ref) {
			out = append(out, strings.TrimSpace(ref))
			continue
		}
		if c := t.canonical(ref); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func copySpecs(s Specs) Specs {
	if s == nil {
		return Specs{}
	}
	out := make(Specs, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
