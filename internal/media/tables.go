package media

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables holds the static lookups the resolver and transformer consume.
// They are built once and never mutated after construction.
type Tables struct {
	// Folders maps a model short code to its storage folder name.
	Folders map[string]string `yaml:"folders"`
	// DisplayNames maps a model short code to its human display name.
	DisplayNames map[string]string `yaml:"display_names"`
	// Fallbacks maps a model short code to the filename shown when a
	// mandatory image slot has nothing stored.
	Fallbacks map[string]string `yaml:"fallbacks"`
}

const defaultFolder = "default"

var digitRun = regexp.MustCompile(`\d+`)

// DefaultTables returns the compiled-in catalog tables.
func DefaultTables() Tables {
	return Tables{
		Folders: map[string]string{
			"TL950":  "TopLine950",
			"TL850":  "TopLine850",
			"TL750":  "TopLine750",
			"TL650":  "TopLine650",
			"OP650":  "Open650",
			"OP550":  "Open550",
			"OP480":  "Open480",
			"CB700":  "Cabin700",
			"CB600":  "Cabin600",
			"RIB520": "Rib520",
			"RIB420": "Rib420",
			"RIB360": "Rib360",
			"AL300":  "AirLine300",
			"AL250":  "AirLine250",
		},
		DisplayNames: map[string]string{
			"TL950":  "TopLine 950",
			"TL850":  "TopLine 850",
			"TL750":  "TopLine 750",
			"TL650":  "TopLine 650",
			"OP650":  "Open 650",
			"OP550":  "Open 550",
			"OP480":  "Open 480",
			"CB700":  "Cabin 700",
			"CB600":  "Cabin 600",
			"RIB520": "RIB 520",
			"RIB420": "RIB 420",
			"RIB360": "RIB 360",
			"AL300":  "AirLine 300",
			"AL250":  "AirLine 250",
		},
		Fallbacks: map[string]string{
			"TL950":  "950TL - 1.jpg",
			"TL850":  "850TL - 1.jpg",
			"TL750":  "750TL - 1.jpg",
			"TL650":  "650TL - 1.jpg",
			"OP650":  "650OP - 1.jpg",
			"OP550":  "550OP - 1.jpg",
			"OP480":  "480OP - 1.jpg",
			"CB700":  "700CB - 1.jpg",
			"CB600":  "600CB - 1.jpg",
			"RIB520": "520RIB - 1.jpg",
			"RIB420": "420RIB - 1.jpg",
			"RIB360": "360RIB - 1.jpg",
			"AL300":  "300AL - 1.jpg",
			"AL250":  "250AL - 1.jpg",
		},
	}
}

// LoadTables reads a YAML file and overlays its entries on the defaults.
// An empty path yields the defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables file: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Tables{}, fmt.Errorf("parse tables file %s: %w", path, err)
	}

	for k, v := range override.Folders {
		t.Folders[k] = v
	}
	for k, v := range override.DisplayNames {
		t.DisplayNames[k] = v
	}
	for k, v := range override.Fallbacks {
		t.Fallbacks[k] = v
	}
	return t, nil
}

// Folder returns the storage folder for a model code. Unmapped codes use
// their own name; it never returns an empty string.
func (t Tables) Folder(code string) string {
	code = strings.TrimSpace(code)
	if folder, ok := t.Folders[code]; ok && folder != "" {
		return folder
	}
	if code == "" {
		return defaultFolder
	}
	return code
}

// DisplayName returns the human name for a model code. Unmapped codes are
// named after their category plus the digit run found in the code, so
// "XY123" in category "TopLine" becomes "TopLine 123".
func (t Tables) DisplayName(code, category string) string {
	code = strings.TrimSpace(code)
	category = strings.TrimSpace(category)
	if name, ok := t.DisplayNames[code]; ok && name != "" {
		return name
	}

	digits := digitRun.FindString(code)
	switch {
	case category != "" && digits != "":
		return category + " " + digits
	case category != "":
		return category
	default:
		return code
	}
}

// FallbackFile returns the per-model fallback filename, if any.
func (t Tables) FallbackFile(code string) (string, bool) {
	f, ok := t.Fallbacks[strings.TrimSpace(code)]
	return f, ok && f != ""
}
