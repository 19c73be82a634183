package media

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoUploadRef = errors.New("upload response carries no url or filename")

type uploadBody struct {
	URL       Ref `json:"url"`
	SecureURL Ref `json:"secure_url"`
	Filename  Ref `json:"filename"`
	Data      *struct {
		URL       Ref `json:"url"`
		SecureURL Ref `json:"secure_url"`
		Filename  Ref `json:"filename"`
	} `json:"data"`
}

// ExtractUploadRef pulls the stored reference out of an upload response.
// Current responses return {url} or {data:{url}}; legacy ones {filename}.
// URLs are kept verbatim, filenames are reduced to their canonical form.
func ExtractUploadRef(body []byte) (string, error) {
	var b uploadBody
	if err := json.Unmarshal(body, &b); err != nil {
		return "", ErrNoUploadRef
	}

	candidates := []Ref{b.URL, b.SecureURL}
	if b.Data != nil {
		candidates = append(candidates, b.Data.URL, b.Data.SecureURL)
	}
	candidates = append(candidates, b.Filename)
	if b.Data != nil {
		candidates = append(candidates, b.Data.Filename)
	}

	for _, c := range candidates {
		v := strings.TrimSpace(string(c))
		if v == "" {
			continue
		}
		if ref := ExtractFilename(v); ref != "" {
			return ref, nil
		}
	}
	return "", ErrNoUploadRef
}
