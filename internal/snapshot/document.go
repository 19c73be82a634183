package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"boatcatalog/internal/domain/catalog"
)

const DocumentVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Document is the on-disk snapshot. Models and categories are kept in the
// canonical payload shape so a file can be written back as-is.
type Document struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Source     string             `json:"source,omitempty"`
	Categories []catalog.Category `json:"categories"`
	Models     []catalog.Model    `json:"models"`
}

func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	// Files written by the old export script carry no version.
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

func ReadFile(path string) (*Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func encode(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
