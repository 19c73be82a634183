package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Specs is the key/value technical data of a model. It has been stored
// both as an object and as a list of {key, value} pairs; the list form is
// folded into the object form and a repeated key keeps its last value.
type Specs map[string]any

type specPair struct {
	Key   json.RawMessage `json:"key"`
	Value any             `json:"value"`
}

func (s *Specs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = nil
		return nil
	}

	switch data[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			*s = nil
			return nil
		}
		*s = Specs(m)
	case '[':
		var pairs []json.RawMessage
		if err := json.Unmarshal(data, &pairs); err != nil {
			*s = nil
			return nil
		}
		out := make(Specs, len(pairs))
		for _, raw := range pairs {
			var p specPair
			if err := json.Unmarshal(raw, &p); err != nil {
				continue
			}
			key := scalarString(p.Key)
			if key == "" {
				continue
			}
			out[key] = p.Value
		}
		*s = out
	default:
		*s = nil
	}
	return nil
}

func (s Specs) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(s))
}

// featureVariant is the union of every element shape seen in feature lists:
// "text", {"feature": "text"} and {name, description, category, price}.
type featureVariant struct {
	text   string
	record *OptionalFeature
}

func matchFeature(raw json.RawMessage) featureVariant {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return featureVariant{text: strings.TrimSpace(s)}
	}

	var rec struct {
		Feature     json.RawMessage `json:"feature"`
		Name        json.RawMessage `json:"name"`
		Title       json.RawMessage `json:"title"`
		Description json.RawMessage `json:"description"`
		Category    json.RawMessage `json:"category"`
		Price       json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return featureVariant{}
	}

	name := firstNonEmpty(scalarString(rec.Name), scalarString(rec.Title))
	feature := scalarString(rec.Feature)
	description := scalarString(rec.Description)
	category := scalarString(rec.Category)
	price := scalarString(rec.Price)

	if name == "" && description == "" && category == "" && price == "" {
		return featureVariant{text: feature}
	}
	return featureVariant{
		text: firstNonEmpty(name, feature),
		record: &OptionalFeature{
			Name:        firstNonEmpty(name, feature),
			Description: description,
			Category:    category,
			Price:       price,
		},
	}
}

// StandardFeatures is the plain-text list of included equipment.
type StandardFeatures []string

func (f *StandardFeatures) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = nil
		return nil
	}
	out := make(StandardFeatures, 0, len(raw))
	for _, item := range raw {
		if v := matchFeature(item); v.text != "" {
			out = append(out, v.text)
		}
	}
	*f = out
	return nil
}

func (f StandardFeatures) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// OptionalFeatures is the structured list of extras.
type OptionalFeatures []OptionalFeature

func (f *OptionalFeatures) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = nil
		return nil
	}
	out := make(OptionalFeatures, 0, len(raw))
	for _, item := range raw {
		v := matchFeature(item)
		switch {
		case v.record != nil:
			out = append(out, *v.record)
		case v.text != "":
			out = append(out, OptionalFeature{Name: v.text})
		}
	}
	*f = out
	return nil
}

func (f OptionalFeatures) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]OptionalFeature(f))
}

// scalarString renders a JSON scalar as text. Objects, arrays and null
// become the empty string.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	case '{', '[', 'n':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
