package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Store puts a file somewhere the site can serve it from and returns the
// reference to write into the model.
type Store interface {
	Name() string
	Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

/* ---------- CLOUDINARY ---------- */

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Name() string { return "cloudinary" }

func (s *CloudinaryStore) Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       strings.TrimSuffix(filename, path.Ext(filename)),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(true),
		ResourceType:   "auto",
	}
	res, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: empty secure_url")
	}
	return res.SecureURL, nil
}

/* ---------- BACKEND ---------- */

// Uploader is the backend upload endpoint.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

type BackendStore struct {
	backend Uploader
}

func NewBackendStore(b Uploader) *BackendStore {
	return &BackendStore{backend: b}
}

func (s *BackendStore) Name() string { return "backend" }

func (s *BackendStore) Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	return s.backend.Upload(ctx, filename, contentType, r)
}
