// Package audit inspects stored catalog media for references that render
// badly or depend on legacy conventions.
package audit

import (
	"sort"
	"strings"

	"boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	IssueLegacyPath           = "legacy_path"
	IssueSchemelessCloudinary = "schemeless_cloudinary"
	IssueStoredPlaceholder    = "stored_placeholder"
	IssueEncodedFilename      = "encoded_filename"
	IssueMissingImage         = "missing_image"
	IssueMissingCategory      = "missing_category"
	IssueUnknownCategory      = "unknown_category"
)

type Finding struct {
	Entity   string   `json:"entity"`
	Name     string   `json:"name"`
	Field    string   `json:"field"`
	Value    string   `json:"value,omitempty"`
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
}

type Report struct {
	Findings []Finding      `json:"findings"`
	Kinds    map[string]int `json:"kinds"`
}

// Errors counts findings the site cannot render around.
func (r Report) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

type auditor struct {
	resolver *media.Resolver
	report   Report
}

// Run checks every media reference of models and categories.
func Run(models []catalog.Model, categories []catalog.Category, resolver *media.Resolver) Report {
	a := &auditor{resolver: resolver, report: Report{Findings: []Finding{}, Kinds: map[string]int{}}}

	known := make(map[catalog.EntityID]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
		a.ref("category", c.Name, "image", string(c.Image))
		a.ref("category", c.Name, "heroImage", string(c.HeroImage))
	}

	for _, m := range models {
		a.ref("model", m.Name, "imageFile", string(m.ImageFile))
		a.ref("model", m.Name, "heroImageFile", string(m.HeroImageFile))
		a.ref("model", m.Name, "contentImageFile", string(m.ContentImageFile))
		a.ref("model", m.Name, "interiorMainImage", string(m.InteriorMainImage))
		a.list("model", m.Name, "galleryFiles", m.GalleryFiles)
		a.list("model", m.Name, "interiorFiles", m.InteriorFiles)
		for _, v := range m.VideoFiles {
			if media.IsYouTubeRef(v) {
				a.report.Kinds["youtube"]++
				continue
			}
			a.ref("model", m.Name, "videoFiles", v)
		}

		if media.Classify(string(m.ImageFile)) == media.RefEmpty {
			sev := SeverityError
			if resolver.FallbackFor(m.Name) != "" {
				sev = SeverityInfo
			}
			a.add(Finding{Entity: "model", Name: m.Name, Field: "imageFile", Issue: IssueMissingImage, Severity: sev})
		}
		switch {
		case m.CategoryID == "":
			a.add(Finding{Entity: "model", Name: m.Name, Field: "categoryId", Issue: IssueMissingCategory, Severity: SeverityWarning})
		case len(categories) > 0 && !known[m.CategoryID]:
			a.add(Finding{Entity: "model", Name: m.Name, Field: "categoryId", Value: m.CategoryID.String(), Issue: IssueUnknownCategory, Severity: SeverityWarning})
		}
	}

	sort.SliceStable(a.report.Findings, func(i, j int) bool {
		fi, fj := a.report.Findings[i], a.report.Findings[j]
		if fi.Entity != fj.Entity {
			return fi.Entity < fj.Entity
		}
		return fi.Name < fj.Name
	})
	return a.report
}

func (a *auditor) list(entity, name, field string, refs media.List) {
	for _, v := range refs {
		a.ref(entity, name, field, v)
	}
}

func (a *auditor) ref(entity, name, field, v string) {
	kind := media.Classify(v)
	a.report.Kinds[kind.String()]++

	switch {
	case kind == media.RefEmpty:
		return
	case a.resolver.IsPlaceholder(v):
		a.add(Finding{Entity: entity, Name: name, Field: field, Value: v, Issue: IssueStoredPlaceholder, Severity: SeverityWarning})
	case kind != media.RefRemoteURL && strings.Contains(v, "cloudinary.com"):
		a.add(Finding{Entity: entity, Name: name, Field: field, Value: v, Issue: IssueSchemelessCloudinary, Severity: SeverityWarning})
	case kind == media.RefLegacyPath:
		a.add(Finding{Entity: entity, Name: name, Field: field, Value: v, Issue: IssueLegacyPath, Severity: SeverityInfo})
	case kind == media.RefBareFilename && strings.Contains(v, "%20"):
		a.add(Finding{Entity: entity, Name: name, Field: field, Value: v, Issue: IssueEncodedFilename, Severity: SeverityWarning})
	}
}

func (a *auditor) add(f Finding) {
	a.report.Findings = append(a.report.Findings, f)
}
