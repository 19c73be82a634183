package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
	"boatcatalog/internal/modules/live"
)

const (
	MaxFileSize    = 100 * 1024 * 1024 // 100 MB, videos included
	maxRecentLimit = 100
)

// AllowedMimeTypes defines which file types are accepted
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"video/mp4":  true,
	"video/webm": true,
}

// Attacher writes an upload's ref into a model media field.
type Attacher interface {
	AttachUpload(ctx context.Context, id domain.EntityID, field, ref string) (*domain.ModelView, error)
}

type Publisher interface {
	Publish(eventType string, payload any)
}

// Request is one incoming file plus where it should go.
type Request struct {
	Filename   string
	Size       int64
	Body       io.Reader
	ModelID    string
	Field      string
	UploadedBy string
}

type Result struct {
	Upload *Upload           `json:"upload"`
	Model  *domain.ModelView `json:"model,omitempty"`
}

type Service struct {
	store     Store
	repo      Repository
	optimizer *Optimizer
	attacher  Attacher
	publisher Publisher
	resolver  *media.Resolver
}

func NewService(store Store, repo Repository, optimizer *Optimizer, attacher Attacher, publisher Publisher, resolver *media.Resolver) *Service {
	return &Service{
		store:     store,
		repo:      repo,
		optimizer: optimizer,
		attacher:  attacher,
		publisher: publisher,
		resolver:  resolver,
	}
}

// Upload validates, optimizes and stores a file, records it, and attaches
// it to a model when one is named.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if req.Size == 0 {
		return nil, ErrEmptyFile
	}
	if req.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	req.ModelID = strings.TrimSpace(req.ModelID)
	req.Field = strings.TrimSpace(req.Field)
	if req.Field != "" && req.ModelID == "" {
		return nil, ErrFieldWithoutModel
	}
	if req.ModelID != "" && !domain.IsMediaField(req.Field) {
		return nil, domain.ErrUnknownMediaField
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	mimeType := strings.Split(http.DetectContentType(data), ";")[0]
	if !AllowedMimeTypes[mimeType] {
		return nil, ErrInvalidMimeType
	}

	optimized := false
	if s.optimizer != nil {
		out, changed, err := s.optimizer.Optimize(data, mimeType)
		if err != nil {
			return nil, err
		}
		data, optimized = out, changed
	}

	id := uuid.New().String()
	filename := storedName(id, req.Filename, mimeType)

	ref, err := s.store.Put(ctx, filename, mimeType, bytes.NewReader(data))
	if err != nil {
		log.Printf("upload_failed store=%s name=%q err=%v", s.store.Name(), req.Filename, err)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	up := &Upload{
		ID:           id,
		ModelID:      req.ModelID,
		Field:        req.Field,
		OriginalName: req.Filename,
		Ref:          ref,
		Store:        s.store.Name(),
		MimeType:     mimeType,
		Size:         int64(len(data)),
		Optimized:    optimized,
		UploadedBy:   req.UploadedBy,
		CreatedAt:    time.Now().UTC(),
	}
	result := &Result{Upload: up}
	var attachErr error
	if req.ModelID != "" {
		result.Model, attachErr = s.attacher.AttachUpload(ctx, domain.EntityID(req.ModelID), req.Field, ref)
		if attachErr == nil && result.Model != nil {
			up.ModelName = result.Model.Name
		}
	}
	s.fillURL(up)

	if s.repo != nil {
		if err := s.repo.Create(ctx, up); err != nil {
			// The file is already stored; losing the ledger row is not fatal.
			log.Printf("upload_record_failed id=%s err=%v", id, err)
		}
	}
	if attachErr != nil {
		log.Printf("upload_attach_failed id=%s model=%s field=%s err=%v", id, req.ModelID, req.Field, attachErr)
		return nil, attachErr
	}

	log.Printf("upload_created id=%s store=%s model=%s field=%s ref=%q", id, up.Store, up.ModelID, up.Field, ref)
	if s.publisher != nil {
		s.publisher.Publish(live.EventUploadCreated, up)
	}
	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Upload, error) {
	if s.repo == nil {
		return nil, ErrUploadNotFound
	}
	up, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillURL(up)
	return up, nil
}

func (s *Service) ListRecent(ctx context.Context, modelID string, limit int) ([]*Upload, error) {
	if s.repo == nil {
		return []*Upload{}, nil
	}
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	uploads, err := s.repo.ListRecent(ctx, strings.TrimSpace(modelID), limit)
	if err != nil {
		return nil, err
	}
	for _, up := range uploads {
		s.fillURL(up)
	}
	return uploads, nil
}

func (s *Service) fillURL(up *Upload) {
	if s.resolver == nil {
		up.URL = up.Ref
		return
	}
	switch {
	case up.Field == "videoFiles" && media.IsYouTubeRef(up.Ref):
		up.URL = up.Ref
	case up.Field == "interiorFiles" || up.Field == "interiorMainImage":
		up.URL = s.resolver.ResolveInterior(up.ModelName, up.Ref)
	default:
		up.URL = s.resolver.ResolveModel(up.ModelName, up.Ref)
	}
}

// storedName names the stored file after the sniffed type, never the
// client's extension.
func storedName(id, original, mimeType string) string {
	return fmt.Sprintf("%s_%s%s", id[:8], sanitizeName(original), mimeToExt(mimeType))
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." || strings.Trim(name, "_") == "" {
		return "file"
	}
	return name
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
