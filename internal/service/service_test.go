package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/db"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/notify"
	"github.com/vbonduro/sitecheck/internal/store"
	"github.com/vbonduro/sitecheck/internal/trade"
	"github.com/vbonduro/sitecheck/internal/vision"
)

// stubBlobStore is a minimal in-memory blobstore.Store for tests.
type stubBlobStore struct {
	mu        sync.Mutex
	saved     map[string][]byte
	uploadErr error
	deleted   []string
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{saved: make(map[string][]byte)}
}

func (s *stubBlobStore) Upload(_ context.Context, dir, mimeType string, data []byte) (string, bool, error) {
	if s.uploadErr != nil {
		return "", false, s.uploadErr
	}
	ext, ok := blobstore.ExtForMIME(mimeType)
	if !ok {
		return "", false, blobstore.ErrUnsupportedType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dir + "/" + string(data) + ext
	_, existed := s.saved[key]
	s.saved[key] = data
	return key, !existed, nil
}

func (s *stubBlobStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return nil, "", blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), blobstore.MIMEForKey(key), nil
}

func (s *stubBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if _, ok := s.saved[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(s.saved, key)
	return nil
}

func (s *stubBlobStore) URL(key string) string { return "http://media.test/media/" + key }

func (s *stubBlobStore) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "http://media.test/media/")
	return key, ok
}

// recordingPublisher keeps every published change.
type recordingPublisher struct {
	changes []notify.StatusChange
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, c notify.StatusChange) error {
	p.changes = append(p.changes, c)
	return p.err
}

// stubVision returns a fixed analysis.
type stubVision struct {
	result   *vision.Analysis
	err      error
	gotTrade string
	gotArea  string
	gotMIME  string
}

func (s *stubVision) Analyze(_ context.Context, _ io.Reader, mimeType, trade, area string) (*vision.Analysis, error) {
	s.gotMIME, s.gotTrade, s.gotArea = mimeType, trade, area
	return s.result, s.err
}

// failingStore wraps a store and fails writes to paths containing failOn.
type failingStore struct {
	docstore.Store
	failOn string
}

func (f *failingStore) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, path, data, merge)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDocs(t *testing.T) *store.DocumentStore {
	t.Helper()
	conn, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	docs, err := store.NewDocumentStore(conn, db.DriverSQLite)
	require.NoError(t, err)
	return docs
}

func testTrades(t *testing.T) *trade.Registry {
	t.Helper()
	reg, err := trade.Default()
	require.NoError(t, err)
	return reg
}

func seedProject(t *testing.T, docs docstore.Store, reg *trade.Registry) domain.Project {
	t.Helper()
	p, err := NewProjectService(docs, reg, testLogger()).Create(context.Background(), domain.Project{
		SiteName:     "Harbor Towers",
		Buildings:    []domain.Building{{Number: "1", Apartments: 3}, {Number: "2", Apartments: 2}},
		ProjectTypes: []string{"plumbing", "electrical"},
	})
	require.NoError(t, err)
	return p
}
