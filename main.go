package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/psi-alpha/genesis-dm/encoder"
	"github.com/psi-alpha/genesis-dm/ingest"
	"github.com/psi-alpha/genesis-dm/milvus"
	"github.com/psi-alpha/genesis-dm/readers"
	"github.com/psi-alpha/genesis-dm/vault"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the data manager")
	flag.Parse()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logWriter := os.Stderr
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %s", err)
		}
		defer logFile.Close()
		logWriter = logFile
	}

	logger := slog.New(slog.NewJSONHandler(logWriter, nil))

	enc, err := encoder.NewOpenAI(encoder.Config{
		APIKey:    os.Getenv(cfg.Embedder.APIKeyEnv),
		BaseURL:   cfg.Embedder.BaseURL,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		log.Fatal(err)
	}

	pipeline := ingest.NewPipeline(logger, enc)
	err = pipeline.RegisterReader(&readers.PdfReader{}, &readers.TextReader{}, &readers.JsonReader{})
	if err != nil {
		log.Fatal(err)
	}

	storeTimeout := time.Duration(cfg.StoreTimeoutSecs) * time.Second
	srv := NewServer(logger, vault.NewStore(cfg.DataDir), pipeline, func(vc vault.Config) ingest.VectorStore {
		return milvus.NewClient(milvus.Config{
			BaseURL: vc.Endpoint,
			Token:   vc.APIKey,
			Timeout: storeTimeout,
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DropDir != "" {
		folder := NewDropFolder(logger, cfg.DropDir, time.Duration(cfg.MergeEventsMs)*time.Millisecond, srv)
		go func() {
			if err := folder.Sync(ctx); err != nil {
				logger.Error("drop folder sync failed", "error", err)
			}
			if err := folder.Watch(ctx); err != nil {
				logger.Error("drop folder watch failed", "error", err)
			}
		}()
	}

	log.Printf("listening on %s", cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, srv.Handler()))
}
