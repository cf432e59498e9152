package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Icannotcodelol/onnyx/internal/config"
	"github.com/Icannotcodelol/onnyx/internal/db"
	"github.com/Icannotcodelol/onnyx/internal/dispatch"
	"github.com/Icannotcodelol/onnyx/internal/generate"
	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/pairing"
	"github.com/Icannotcodelol/onnyx/internal/providers"
	"github.com/Icannotcodelol/onnyx/internal/renderer"
	"github.com/Icannotcodelol/onnyx/internal/storage"
)

// app bundles the collaborators shared by the pipeline commands.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *db.DB
}

// newApp loads configuration and connects to the database.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel)

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{cfg: cfg, log: log, db: database}, nil
}

func (a *app) close() {
	a.db.Close()
}

func (a *app) blobs(ctx context.Context) (*storage.Store, error) {
	return storage.New(ctx, storage.Config{
		Endpoint:  a.cfg.StorageEndpoint,
		AccessKey: a.cfg.StorageAccessKey,
		SecretKey: a.cfg.StorageSecretKey,
		Bucket:    a.cfg.StorageBucket,
		PublicURL: a.cfg.StoragePublicURL,
	})
}

func (a *app) providerRegistry() map[string]providers.Provider {
	return providers.Load(providers.Config{
		OpenAIKey:    a.cfg.OpenAIKey,
		AnthropicKey: a.cfg.AnthropicKey,
		GoogleKey:    a.cfg.GoogleKey,
		DeepSeekKey:  a.cfg.DeepSeekKey,
	})
}

func (a *app) generator() (*generate.Generator, error) {
	return generate.New(a.cfg.GeneratorURL, a.cfg.GeneratorKey, a.log)
}

func (a *app) dispatcher(blobs *storage.Store, m *metrics.Metrics) *dispatch.Dispatcher {
	client := renderer.NewClient(a.cfg.RendererURL)
	return dispatch.New(a.db, blobs, client, a.providerRegistry(), m, a.log)
}

func (a *app) pairer(m *metrics.Metrics) *pairing.Engine {
	return pairing.New(a.db, m, a.log)
}
