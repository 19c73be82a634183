package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"boatcatalog/internal/domain/catalog"
)

const DefaultConcurrency = 4

// Backend is the part of the catalog backend snapshots read and write.
type Backend interface {
	ListModels(ctx context.Context) ([]catalog.Model, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateModel(ctx context.Context, m catalog.Model) (*catalog.Model, error)
	UpdateModel(ctx context.Context, id catalog.EntityID, m catalog.Model) (*catalog.Model, error)
	CreateCategory(ctx context.Context, c catalog.Category) (*catalog.Category, error)
	UpdateCategory(ctx context.Context, id catalog.EntityID, c catalog.Category) (*catalog.Category, error)
}

type Options struct {
	DryRun      bool
	Concurrency int
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpSkip   Op = "skip"
)

// Action is what happened, or would happen on a dry run, to one record.
type Action struct {
	Entity string `json:"entity"`
	Name   string `json:"name"`
	Op     Op     `json:"op"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	Snapshot *Snapshot `json:"snapshot"`
	Actions  []Action  `json:"actions"`
}

func (r *Report) Failed() int { return r.Snapshot.Failed }

type Service struct {
	backend     Backend
	transformer *catalog.Transformer
	repo        Repository
	now         func() time.Time
}

// NewService builds a snapshot service. repo may be nil, in which case runs
// are not recorded and RestoreLatest is unavailable.
func NewService(b Backend, t *catalog.Transformer, repo Repository) *Service {
	return &Service{backend: b, transformer: t, repo: repo, now: time.Now}
}

/* ---------- EXPORT ---------- */

// Export reads the whole catalog, canonicalizes it and writes it to path.
// An empty path skips the file and only records the snapshot.
func (s *Service) Export(ctx context.Context, path string) (*Snapshot, error) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	doc := &Document{
		Version:    DocumentVersion,
		ExportedAt: s.now().UTC(),
		Categories: make([]catalog.Category, 0, len(categories)),
		Models:     make([]catalog.Model, 0, len(models)),
	}
	for _, c := range categories {
		doc.Categories = append(doc.Categories, s.transformer.ToCategoryPayload(c))
	}
	for _, m := range models {
		doc.Models = append(doc.Models, s.transformer.ToBackendPayload(m))
	}
	sort.SliceStable(doc.Categories, func(i, j int) bool { return doc.Categories[i].Name < doc.Categories[j].Name })
	sort.SliceStable(doc.Models, func(i, j int) bool { return doc.Models[i].Name < doc.Models[j].Name })

	data, err := encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if path != "" {
		if err := writeFile(path, data); err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{
		ID:         uuid.New().String(),
		Kind:       KindExport,
		Path:       path,
		Checksum:   checksum(data),
		Models:     len(doc.Models),
		Categories: len(doc.Categories),
		Document:   data,
		CreatedAt:  doc.ExportedAt,
	}
	s.record(ctx, snap)

	log.Printf("snapshot_export path=%q models=%d categories=%d checksum=%s", path, snap.Models, snap.Categories, snap.Checksum[:12])
	return snap, nil
}

/* ---------- IMPORT / RESTORE ---------- */

// Import creates records missing from the backend and updates the ones
// that exist, matching by name.
func (s *Service) Import(ctx context.Context, path string, opts Options) (*Report, error) {
	doc, data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, KindImport, path, doc, data, opts)
}

// Restore rewrites records that exist in the backend from the snapshot.
// Records the backend no longer has are skipped.
func (s *Service) Restore(ctx context.Context, path string, opts Options) (*Report, error) {
	doc, data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, KindRestore, path, doc, data, opts)
}

// RestoreLatest restores the most recent recorded export.
func (s *Service) RestoreLatest(ctx context.Context, opts Options) (*Report, error) {
	latest, err := s.Latest(ctx, KindExport)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(latest.Document)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, KindRestore, latest.Path, doc, latest.Document, opts)
}

func (s *Service) Latest(ctx context.Context, kind Kind) (*Snapshot, error) {
	if s.repo == nil {
		return nil, ErrSnapshotNotFound
	}
	return s.repo.Latest(ctx, kind)
}

func (s *Service) History(ctx context.Context, limit int) ([]*Snapshot, error) {
	if s.repo == nil {
		return []*Snapshot{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit)
}

// Prune deletes history older than maxAge. The latest export is always
// kept so RestoreLatest keeps working.
func (s *Service) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	startTime := time.Now()

	keep := ""
	latest, err := s.repo.Latest(ctx, KindExport)
	switch {
	case err == nil:
		keep = latest.ID
	case !errors.Is(err, ErrSnapshotNotFound):
		return 0, err
	}

	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-maxAge), keep)
	if err != nil {
		log.Printf("snapshot_prune_failed err=%v", err)
		return 0, err
	}
	log.Printf("snapshot_prune deleted=%d max_age=%s took=%v", deleted, maxAge, time.Since(startTime))
	return deleted, nil
}

// run collects the outcome of one apply.
type run struct {
	mu      sync.Mutex
	snap    *Snapshot
	actions []Action
	idMap   map[catalog.EntityID]catalog.EntityID
}

func (r *run) add(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	switch {
	case a.Error != "":
		r.snap.Failed++
	case a.Op == OpCreate:
		r.snap.Created++
	case a.Op == OpUpdate:
		r.snap.Updated++
	default:
		r.snap.Skipped++
	}
}

func (r *run) mapID(from, to catalog.EntityID) {
	if from == "" || to == "" {
		return
	}
	r.mu.Lock()
	r.idMap[from] = to
	r.mu.Unlock()
}

func (s *Service) apply(ctx context.Context, kind Kind, path string, doc *Document, data []byte, opts Options) (*Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	createMissing := kind == KindImport

	r := &run{
		snap: &Snapshot{
			ID:         uuid.New().String(),
			Kind:       kind,
			Path:       path,
			Checksum:   checksum(data),
			Models:     len(doc.Models),
			Categories: len(doc.Categories),
			DryRun:     opts.DryRun,
			CreatedAt:  s.now().UTC(),
		},
		idMap: make(map[catalog.EntityID]catalog.EntityID),
	}

	existingCategories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categoryIDs := indexByName(existingCategories, func(c catalog.Category) (string, catalog.EntityID) { return c.Name, c.ID })

	// Categories go first so models can be pointed at their new ids.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	seen := make(map[string]bool)
	for _, c := range doc.Categories {
		c := s.transformer.ToCategoryPayload(c)
		key := nameKey(c.Name)
		if key == "" || seen[key] {
			r.add(Action{Entity: "category", Name: c.Name, Op: OpSkip})
			continue
		}
		seen[key] = true

		existing, ok := categoryIDs[key]
		g.Go(func() error {
			r.add(s.writeCategory(gctx, r, c, existing, ok, createMissing, opts.DryRun))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	existingModels, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	modelIDs := indexByName(existingModels, func(m catalog.Model) (string, catalog.EntityID) { return m.Name, m.ID })

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	seen = make(map[string]bool)
	for _, m := range doc.Models {
		m := s.transformer.ToBackendPayload(m)
		key := nameKey(m.Name)
		if key == "" || seen[key] {
			r.add(Action{Entity: "model", Name: m.Name, Op: OpSkip})
			continue
		}
		seen[key] = true
		if to, ok := r.idMap[m.CategoryID]; ok {
			m.CategoryID = to
		}

		existing, ok := modelIDs[key]
		g.Go(func() error {
			r.add(s.writeModel(gctx, m, existing, ok, createMissing, opts.DryRun))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.record(ctx, r.snap)
	log.Printf("snapshot_%s path=%q dry_run=%t created=%d updated=%d skipped=%d failed=%d",
		kind, path, opts.DryRun, r.snap.Created, r.snap.Updated, r.snap.Skipped, r.snap.Failed)

	sort.SliceStable(r.actions, func(i, j int) bool {
		if r.actions[i].Entity != r.actions[j].Entity {
			return r.actions[i].Entity == "category"
		}
		return r.actions[i].Name < r.actions[j].Name
	})
	return &Report{Snapshot: r.snap, Actions: r.actions}, nil
}

func (s *Service) writeCategory(ctx context.Context, r *run, c catalog.Category, existing catalog.EntityID, exists, createMissing, dryRun bool) Action {
	a := Action{Entity: "category", Name: c.Name}
	fromID := c.ID

	switch {
	case exists:
		a.Op = OpUpdate
		r.mapID(fromID, existing)
		if dryRun {
			return a
		}
		c.ID = existing
		if _, err := s.backend.UpdateCategory(ctx, existing, c); err != nil {
			a.Error = err.Error()
		}
	case createMissing:
		a.Op = OpCreate
		if dryRun {
			return a
		}
		c.ID = ""
		created, err := s.backend.CreateCategory(ctx, c)
		if err != nil {
			a.Error = err.Error()
			return a
		}
		if created != nil {
			r.mapID(fromID, created.ID)
		}
	default:
		a.Op = OpSkip
	}
	return a
}

func (s *Service) writeModel(ctx context.Context, m catalog.Model, existing catalog.EntityID, exists, createMissing, dryRun bool) Action {
	a := Action{Entity: "model", Name: m.Name}

	switch {
	case exists:
		a.Op = OpUpdate
		if dryRun {
			return a
		}
		m.ID = existing
		if _, err := s.backend.UpdateModel(ctx, existing, m); err != nil {
			a.Error = err.Error()
		}
	case createMissing:
		a.Op = OpCreate
		if dryRun {
			return a
		}
		m.ID = ""
		if _, err := s.backend.CreateModel(ctx, m); err != nil {
			a.Error = err.Error()
		}
	default:
		a.Op = OpSkip
	}
	return a
}

func (s *Service) record(ctx context.Context, snap *Snapshot) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, snap); err != nil {
		log.Printf("snapshot_record_failed id=%s kind=%s err=%v", snap.ID, snap.Kind, err)
	}
}

func indexByName[T any](items []T, key func(T) (string, catalog.EntityID)) map[string]catalog.EntityID {
	out := make(map[string]catalog.EntityID, len(items))
	for _, it := range items {
		name, id := key(it)
		if k := nameKey(name); k != "" {
			out[k] = id
		}
	}
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
