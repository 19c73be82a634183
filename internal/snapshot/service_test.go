package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boatcatalog/internal/database"
	"boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
)

/* ==================== FAKE BACKEND ==================== */

type memoryBackend struct {
	mu         sync.Mutex
	nextID     int
	models     []catalog.Model
	categories []catalog.Category
	failOn     string
	writes     int
}

func (b *memoryBackend) newID() catalog.EntityID {
	b.nextID++
	return catalog.EntityID(fmt.Sprintf("new-%d", b.nextID))
}

func (b *memoryBackend) ListModels(context.Context) ([]catalog.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]catalog.Model(nil), b.models...), nil
}

func (b *memoryBackend) ListCategories(context.Context) ([]catalog.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]catalog.Category(nil), b.categories...), nil
}

func (b *memoryBackend) CreateModel(_ context.Context, m catalog.Model) (*catalog.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m.Name == b.failOn {
		return nil, errors.New("backend rejected")
	}
	b.writes++
	m.ID = b.newID()
	b.models = append(b.models, m)
	return &m, nil
}

func (b *memoryBackend) UpdateModel(_ context.Context, id catalog.EntityID, m catalog.Model) (*catalog.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m.Name == b.failOn {
		return nil, errors.New("backend rejected")
	}
	b.writes++
	for i := range b.models {
		if b.models[i].ID == id {
			b.models[i] = m
			return &m, nil
		}
	}
	return nil, errors.New("not found")
}

func (b *memoryBackend) CreateCategory(_ context.Context, c catalog.Category) (*catalog.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	c.ID = b.newID()
	b.categories = append(b.categories, c)
	return &c, nil
}

func (b *memoryBackend) UpdateCategory(_ context.Context, id catalog.EntityID, c catalog.Category) (*catalog.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	for i := range b.categories {
		if b.categories[i].ID == id {
			b.categories[i] = c
			return &c, nil
		}
	}
	return nil, errors.New("not found")
}

func (b *memoryBackend) model(name string) *catalog.Model {
	for i := range b.models {
		if b.models[i].Name == name {
			return &b.models[i]
		}
	}
	return nil
}

/* ==================== HELPERS ==================== */

func newTestService(t *testing.T, b Backend) *Service {
	t.Helper()
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &Snapshot{}))

	transformer := catalog.NewTransformer(media.NewResolver("", media.DefaultTables()))
	s := NewService(b, transformer, NewRepository(db))
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func sourceCatalog() *memoryBackend {
	return &memoryBackend{
		categories: []catalog.Category{
			{ID: "c1", Name: "TopLine", MainGroup: catalog.MainGroupBoats, Image: "/images/categories/TopLine/cover.jpg"},
		},
		models: []catalog.Model{
			{
				ID:           "m1",
				Name:         "TL850",
				CategoryID:   "c1",
				ImageFile:    "/images/TopLine850/850TL%20-%201.jpg",
				GalleryFiles: media.List{"a.jpg", "/images/placeholder.jpg"},
			},
			{ID: "m2", Name: "TL950", CategoryID: "c1", ImageFile: "res.cloudinary.com/demo/x.jpg"},
		},
	}
}

/* ==================== TESTS ==================== */

func TestExport_WritesCanonicalDocument(t *testing.T) {
	// Arrange
	s := newTestService(t, sourceCatalog())
	path := filepath.Join(t.TempDir(), "out", "catalog.json")

	// Act
	snap, err := s.Export(context.Background(), path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Models)
	assert.Equal(t, 1, snap.Categories)
	assert.Len(t, snap.Checksum, 64)

	doc, _, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, doc.Version)
	require.Len(t, doc.Models, 2)
	assert.Equal(t, "TL850", doc.Models[0].Name)
	assert.Equal(t, media.Ref("850TL - 1.jpg"), doc.Models[0].ImageFile)
	assert.Equal(t, media.List{"a.jpg"}, doc.Models[0].GalleryFiles)
	assert.Equal(t, media.Ref("https://res.cloudinary.com/demo/x.jpg"), doc.Models[1].ImageFile)
	assert.Equal(t, media.Ref("cover.jpg"), doc.Categories[0].Image)

	latest, err := s.Latest(context.Background(), KindExport)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
}

func TestImport_CreatesAndRemapsCategories(t *testing.T) {
	src := newTestService(t, sourceCatalog())
	path := filepath.Join(t.TempDir(), "catalog.json")
	_, err := src.Export(context.Background(), path)
	require.NoError(t, err)

	target := &memoryBackend{
		models: []catalog.Model{{ID: "77", Name: "tl850", Title: "old"}},
	}
	s := newTestService(t, target)

	report, err := s.Import(context.Background(), path, Options{Concurrency: 2})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Snapshot.Created) // category + TL950
	assert.Equal(t, 1, report.Snapshot.Updated) // TL850 matched case-insensitively
	assert.Zero(t, report.Failed())

	require.Len(t, target.categories, 1)
	newCat := target.categories[0].ID
	assert.Equal(t, newCat, target.model("TL950").CategoryID)
	assert.Equal(t, newCat, target.model("TL850").CategoryID)
	assert.Equal(t, catalog.EntityID("77"), target.model("TL850").ID)
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	src := newTestService(t, sourceCatalog())
	path := filepath.Join(t.TempDir(), "catalog.json")
	_, err := src.Export(context.Background(), path)
	require.NoError(t, err)

	target := &memoryBackend{}
	s := newTestService(t, target)

	report, err := s.Import(context.Background(), path, Options{DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, 3, report.Snapshot.Created)
	assert.True(t, report.Snapshot.DryRun)
	assert.Zero(t, target.writes)
	require.Len(t, report.Actions, 3)
	assert.Equal(t, "category", report.Actions[0].Entity)
}

func TestRestore_UpdatesExistingOnly(t *testing.T) {
	b := sourceCatalog()
	s := newTestService(t, b)
	path := filepath.Join(t.TempDir(), "catalog.json")
	_, err := s.Export(context.Background(), path)
	require.NoError(t, err)

	// TL950 disappears and TL850 is edited after the export.
	b.models = b.models[:1]
	b.models[0].Title = "edited"

	report, err := s.Restore(context.Background(), path, Options{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Snapshot.Updated) // category + TL850
	assert.Equal(t, 1, report.Snapshot.Skipped)
	assert.Zero(t, report.Snapshot.Created)
	assert.Len(t, b.models, 1)
	assert.Empty(t, b.model("TL850").Title)
}

func TestRestoreLatest_UsesRecordedDocument(t *testing.T) {
	b := sourceCatalog()
	s := newTestService(t, b)
	path := filepath.Join(t.TempDir(), "catalog.json")
	_, err := s.Export(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	b.model("TL950").ImageFile = "broken.jpg"

	report, err := s.RestoreLatest(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, report.Snapshot.Updated)
	assert.Equal(t, media.Ref("https://res.cloudinary.com/demo/x.jpg"), b.model("TL950").ImageFile)
}

func TestRestoreLatest_NothingRecorded(t *testing.T) {
	s := newTestService(t, &memoryBackend{})

	_, err := s.RestoreLatest(context.Background(), Options{})

	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestImport_ItemFailuresAreReported(t *testing.T) {
	src := newTestService(t, sourceCatalog())
	path := filepath.Join(t.TempDir(), "catalog.json")
	_, err := src.Export(context.Background(), path)
	require.NoError(t, err)

	target := &memoryBackend{failOn: "TL950"}
	s := newTestService(t, target)

	report, err := s.Import(context.Background(), path, Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 2, report.Snapshot.Created)
	assert.NotNil(t, target.model("TL850"))
}

func TestImport_DuplicateNamesSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"models": [{"name": "TL850"}, {"name": " tl850 "}, {"name": ""}]
	}`), 0o644))

	target := &memoryBackend{}
	s := newTestService(t, target)

	report, err := s.Import(context.Background(), path, Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Snapshot.Created)
	assert.Equal(t, 2, report.Snapshot.Skipped)
}

func TestDecodeDocument_RejectsNewerVersion(t *testing.T) {
	_, err := DecodeDocument([]byte(`{"version": 99}`))

	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestHistory(t *testing.T) {
	s := newTestService(t, sourceCatalog())
	_, err := s.Export(context.Background(), "")
	require.NoError(t, err)

	history, err := s.History(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, KindExport, history[0].Kind)
	assert.Empty(t, history[0].Document)
}

func TestPrune_KeepsLatestExport(t *testing.T) {
	s := newTestService(t, sourceCatalog())
	ctx := context.Background()

	_, err := s.Export(ctx, "")
	require.NoError(t, err)
	_, err = s.Export(ctx, "")
	require.NoError(t, err)

	// Both exports carry the same timestamp; move the clock well past them.
	s.now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	deleted, err := s.Prune(ctx, 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHandler_ExportHistoryRestore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := sourceCatalog()
	s := newTestService(t, b)
	r := gin.New()
	NewHandler(s).RegisterRoutes(r.Group("/admin"))

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	assert.Equal(t, http.StatusNotFound, do(http.MethodPost, "/admin/snapshots/restore").Code)
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/admin/snapshots").Code)

	w := do(http.MethodGet, "/admin/snapshots")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"export"`)

	w = do(http.MethodPost, "/admin/snapshots/restore?dry_run=true")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dry_run":true`)
	assert.Zero(t, b.writes)
}
