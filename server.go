package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/psi-alpha/genesis-dm/ingest"
	"github.com/psi-alpha/genesis-dm/vault"
	"github.com/rs/cors"
)

// storeFactory builds a vector store client from the decrypted runtime
// configuration. Injected so tests can substitute fakes.
type storeFactory func(cfg vault.Config) ingest.VectorStore

type Server struct {
	log      *slog.Logger
	vault    *vault.Store
	pipeline *ingest.Pipeline
	newStore storeFactory
}

func NewServer(log *slog.Logger, v *vault.Store, pipeline *ingest.Pipeline, newStore storeFactory) *Server {
	return &Server{
		log:      log,
		vault:    v,
		pipeline: pipeline,
		newStore: newStore,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /config/status", s.handleConfigStatus)
	mux.HandleFunc("POST /config/setup", s.handleConfigSetup)
	mux.HandleFunc("POST /config/reset", s.handleConfigReset)
	mux.HandleFunc("POST /upload", s.handleUpload)

	return cors.AllowAll().Handler(mux)
}

type configStatus struct {
	Configured     bool   `json:"configured"`
	Identity       string `json:"identity,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
}

type uploadResponse struct {
	InsertedVectors  int    `json:"inserted_vectors"`
	DuplicateChunks  int    `json:"duplicate_chunks"`
	DuplicateMessage string `json:"duplicate_message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	if !s.vault.Exists() {
		writeJSON(w, http.StatusOK, configStatus{Configured: false})
		return
	}

	cfg, err := s.vault.Load()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, configStatus{
		Configured:     true,
		Identity:       cfg.Identity,
		CollectionName: cfg.Collection,
	})
}

func (s *Server) handleConfigSetup(w http.ResponseWriter, r *http.Request) {
	var cfg vault.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid setup payload")
		return
	}

	if err := s.vault.Save(cfg); err != nil {
		if errors.Is(err, vault.ErrAlreadyConfigured) {
			writeError(w, http.StatusBadRequest, "Configuration already exists")
			return
		}
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, configStatus{
		Configured:     true,
		Identity:       cfg.Identity,
		CollectionName: cfg.Collection,
	})
}

func (s *Server) handleConfigReset(w http.ResponseWriter, r *http.Request) {
	if err := s.vault.Reset(); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, configStatus{Configured: false})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.vault.Exists() {
		writeError(w, http.StatusBadRequest, "System is not configured. Complete setup first.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	// reject unsupported formats before buffering the payload
	if !s.pipeline.Supports(header.Filename) {
		writeError(w, http.StatusBadRequest, "Unsupported file format")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	res, err := s.process(r.Context(), header.Filename, data)
	if err != nil {
		var upstream *ingest.UpstreamError
		switch {
		case errors.Is(err, ingest.ErrEmptyInput):
			writeError(w, http.StatusBadRequest, "Uploaded file is empty")
		case errors.Is(err, ingest.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Unsupported file format")
		case errors.As(err, &upstream):
			s.log.Error("vector store call failed", "op", upstream.Op, "error", upstream.Err)
			writeError(w, http.StatusBadGateway, upstream.Error())
		default:
			s.fail(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		InsertedVectors:  res.Inserted,
		DuplicateChunks:  res.Duplicates,
		DuplicateMessage: res.Message,
	})
}

// process runs one file through the pipeline against a store built from
// the current runtime configuration. Shared by the upload handler and
// the drop folder.
func (s *Server) process(ctx context.Context, filename string, data []byte) (ingest.Result, error) {
	cfg, err := s.vault.Load()
	if err != nil {
		return ingest.Result{}, err
	}

	target := ingest.Target{Collection: cfg.Collection, Identity: cfg.Identity}
	return s.pipeline.Process(ctx, s.newStore(cfg), target, filename, data)
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	s.log.Error("request failed", "error", err)
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
