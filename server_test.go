package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/psi-alpha/genesis-dm/ingest"
	"github.com/psi-alpha/genesis-dm/readers"
	"github.com/psi-alpha/genesis-dm/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct{}

func (e *fakeEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

type fakeStore struct {
	hits        [][]ingest.SearchHit
	searchErr   error
	insertCalls int
	inserted    []ingest.Record
}

func (s *fakeStore) Search(ctx context.Context, collection string, vectors [][]float32, limit int, field string, nprobe int) ([][]ingest.SearchHit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.hits != nil {
		return s.hits, nil
	}
	return make([][]ingest.SearchHit, len(vectors)), nil
}

func (s *fakeStore) Insert(ctx context.Context, collection string, records []ingest.Record) (int, error) {
	s.insertCalls++
	s.inserted = records
	return len(records), nil
}

func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()

	pipeline := ingest.NewPipeline(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeEncoder{})
	require.NoError(t, pipeline.RegisterReader(&readers.TextReader{}, &readers.JsonReader{}, &readers.PdfReader{}))

	return NewServer(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		vault.NewStore(t.TempDir()),
		pipeline,
		func(cfg vault.Config) ingest.VectorStore { return store },
	)
}

func configure(t *testing.T, handler http.Handler) {
	t.Helper()

	payload := `{"cloudflare_url": "https://milvus.example.com", "api_key": "tok", "collection_name": "genesis", "identity": "psi"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/setup", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func Test_Health(t *testing.T) {
	handler := newTestServer(t, &fakeStore{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func Test_ConfigLifecycle(t *testing.T) {
	handler := newTestServer(t, &fakeStore{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config/status", nil))
	assert.JSONEq(t, `{"configured": false}`, rec.Body.String())

	configure(t, handler)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config/status", nil))
	assert.JSONEq(t, `{"configured": true, "identity": "psi", "collection_name": "genesis"}`, rec.Body.String())

	// second setup is rejected until reset
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/setup", strings.NewReader(`{"identity": "other"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config/status", nil))
	assert.JSONEq(t, `{"configured": false}`, rec.Body.String())
}

func Test_Upload_NotConfigured(t *testing.T) {
	handler := newTestServer(t, &fakeStore{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "hello world"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func Test_Upload_Inserts(t *testing.T) {
	store := &fakeStore{}
	handler := newTestServer(t, store).Handler()
	configure(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "some perfectly novel content"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		InsertedVectors  int    `json:"inserted_vectors"`
		DuplicateChunks  int    `json:"duplicate_chunks"`
		DuplicateMessage string `json:"duplicate_message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.InsertedVectors)
	assert.Zero(t, resp.DuplicateChunks)
	assert.Empty(t, resp.DuplicateMessage)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "psi", store.inserted[0].Identity)
}

func Test_Upload_DuplicateRejected(t *testing.T) {
	score := 0.99
	store := &fakeStore{hits: [][]ingest.SearchHit{{{Score: &score}}}}
	handler := newTestServer(t, store).Handler()
	configure(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "previously seen content"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{
		"inserted_vectors": 0,
		"duplicate_chunks": 1,
		"duplicate_message": "DUPLICATE REJECTED (Coherence Already Maxed)"
	}`, rec.Body.String())
	assert.Equal(t, 0, store.insertCalls)
}

func Test_Upload_UnsupportedFormat(t *testing.T) {
	handler := newTestServer(t, &fakeStore{}).Handler()
	configure(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "report.docx", "whatever"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported file format")
}

func Test_Upload_EmptyFile(t *testing.T) {
	handler := newTestServer(t, &fakeStore{}).Handler()
	configure(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "  \n "))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty")
}

func Test_Upload_UpstreamFailure(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("connection refused")}
	handler := newTestServer(t, store).Handler()
	configure(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", "fresh content"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
