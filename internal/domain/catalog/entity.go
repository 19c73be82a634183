package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"boatcatalog/internal/media"
)

// EntityID is a backend record id. The backend has used both numeric and
// string ids, so both decode to the same string form.
type EntityID string

func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = EntityID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = EntityID(n.String())
		return nil
	}
	*id = ""
	return nil
}

func (id EntityID) String() string { return string(id) }

type MainGroup string

const (
	MainGroupInflatableBoats MainGroup = "inflatableBoats"
	MainGroupBoats           MainGroup = "boats"
)

func (g *MainGroup) UnmarshalJSON(data []byte) error {
	var s string
	_ = json.Unmarshal(data, &s)
	*g = ParseMainGroup(s)
	return nil
}

// ParseMainGroup maps a stored group to one of the known groups; anything
// unrecognised is filed under boats.
func ParseMainGroup(s string) MainGroup {
	if strings.EqualFold(strings.TrimSpace(s), string(MainGroupInflatableBoats)) {
		return MainGroupInflatableBoats
	}
	return MainGroupBoats
}

// Model is a boat model as the backend stores it.
type Model struct {
	ID               EntityID         `json:"id,omitempty"`
	Name             string           `json:"name"`
	CategoryID       EntityID         `json:"categoryId,omitempty"`
	Title            string           `json:"title,omitempty"`
	Description      string           `json:"description,omitempty"`
	ShortDescription string           `json:"shortDescription,omitempty"`
	Specs            Specs            `json:"specs"`
	StandardFeatures StandardFeatures `json:"standardFeatures"`
	OptionalFeatures OptionalFeatures `json:"optionalFeatures"`

	ImageFile         media.Ref  `json:"imageFile"`
	HeroImageFile     media.Ref  `json:"heroImageFile"`
	ContentImageFile  media.Ref  `json:"contentImageFile"`
	InteriorMainImage media.Ref  `json:"interiorMainImage"`
	GalleryFiles      media.List `json:"galleryFiles"`
	InteriorFiles     media.List `json:"interiorFiles"`
	VideoFiles        media.List `json:"videoFiles"`
}

// Category groups models; membership is by Model.CategoryID.
type Category struct {
	ID          EntityID  `json:"id,omitempty"`
	Name        string    `json:"name"`
	MainGroup   MainGroup `json:"mainGroup"`
	Description string    `json:"description,omitempty"`
	Image       media.Ref `json:"image"`
	HeroImage   media.Ref `json:"heroImage"`
}

// OptionalFeature is an extra a model can be ordered with.
type OptionalFeature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
}

// ModelView is the normalized model the site renders.
type ModelView struct {
	ID               EntityID          `json:"id"`
	Name             string            `json:"name"`
	DisplayName      string            `json:"displayName"`
	CategoryID       EntityID          `json:"categoryId"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"shortDescription"`
	Specs            Specs             `json:"specs"`
	StandardFeatures []string          `json:"standardFeatures"`
	OptionalFeatures []OptionalFeature `json:"optionalFeatures"`

	Image             string   `json:"image"`
	HeroImage         string   `json:"heroImage"`
	ContentImage      string   `json:"contentImage"`
	InteriorMainImage *string  `json:"interiorMainImage"`
	GalleryFiles      []string `json:"galleryFiles"`
	InteriorFiles     []string `json:"interiorFiles"`
	VideoFiles        []string `json:"videoFiles"`
	Videos            []Video  `json:"videos"`
}

type VideoKind string

const (
	VideoYouTube VideoKind = "youtube"
	VideoFile    VideoKind = "file"
)

// Video describes one entry of ModelView.VideoFiles for the player.
type Video struct {
	Kind     VideoKind `json:"kind"`
	Src      string    `json:"src"`
	EmbedURL string    `json:"embedUrl,omitempty"`
}

// CategoryView is the normalized category with its member models.
type CategoryView struct {
	ID          EntityID    `json:"id"`
	Name        string      `json:"name"`
	MainGroup   MainGroup   `json:"mainGroup"`
	Description string      `json:"description"`
	Image       *string     `json:"image"`
	HeroImage   *string     `json:"heroImage"`
	Models      []ModelView `json:"models"`
}

// Edits maps the view back onto backend field names one to one, fallback
// substitutions included. Writes of an edited view go through
// Transformer.ApplyEdits instead.
func (v ModelView) Edits() Model {
	m := Model{
		ID:               v.ID,
		Name:             v.Name,
		CategoryID:       v.CategoryID,
		Title:            v.Title,
		Description:      v.Description,
		ShortDescription: v.ShortDescription,
		Specs:            v.Specs,
		StandardFeatures: StandardFeatures(v.StandardFeatures),
		OptionalFeatures: OptionalFeatures(v.OptionalFeatures),
		ImageFile:        media.Ref(v.Image),
		HeroImageFile:    media.Ref(v.HeroImage),
		ContentImageFile: media.Ref(v.ContentImage),
		GalleryFiles:     media.List(v.GalleryFiles),
		InteriorFiles:    media.List(v.InteriorFiles),
		VideoFiles:       media.List(v.VideoFiles),
	}
	if v.InteriorMainImage != nil {
		m.InteriorMainImage = media.Ref(*v.InteriorMainImage)
	}
	return m
}
