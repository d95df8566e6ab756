package server

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/louisbranch/cardpress/internal/platform/timeouts"
	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/domain"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
	"github.com/louisbranch/cardpress/internal/services/cards/render"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
	"github.com/louisbranch/cardpress/internal/services/cards/storage/postgres"
	"github.com/louisbranch/cardpress/internal/services/cards/storage/sqlite"
)

// Config holds the runtime settings shared by the server and maintenance
// commands.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	// DatabaseURL selects PostgreSQL when set; otherwise DBPath is a SQLite
	// file.
	DatabaseURL string
	DBPath      string

	CardsDir         string
	PhotosDir        string
	InstitutionsFile string
	FitUploads       bool
	MaxUploadBytes   int64

	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration

	KeepCards       int
	KeepPhotos      int
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join("data", "cards.db")
	}
	if strings.TrimSpace(c.CardsDir) == "" {
		c.CardsDir = "generated_cards"
	}
	if strings.TrimSpace(c.PhotosDir) == "" {
		c.PhotosDir = "user_photos"
	}
	if c.KeepCards <= 0 {
		c.KeepCards = 100
	}
	if c.KeepPhotos <= 0 {
		c.KeepPhotos = 200
	}
	return c
}

// Services is the assembled card issuance runtime.
type Services struct {
	Store    storage.Store
	Registry *domain.Registry
	Engine   *render.Engine
	Issuer   *issuance.Issuer
	Tokens   *issuance.TokenGenerator
	Reporter *issuance.Reporter
	Janitor  issuance.Janitor
	Dirs     artifacts.Dirs
	Metrics  *metrics.Metrics
	Gatherer *prometheus.Registry
}

// OpenServices opens storage and builds every service over it.
func OpenServices(ctx context.Context, cfg Config) (*Services, error) {
	cfg = cfg.withDefaults()

	registry, err := domain.LoadRegistry(cfg.InstitutionsFile)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fonts := render.ResolveFonts(render.DefaultFontCandidates)
	log.Printf("card fonts: %s", fonts.Name())
	engine, err := render.NewEngine(registry, fonts, cfg.CardsDir)
	if err != nil {
		return nil, fmt.Errorf("build render engine: %w", err)
	}

	dirs := artifacts.Dirs{Cards: cfg.CardsDir, Photos: cfg.PhotosDir}
	if cfg.FitUploads {
		fitter := engine.Fitter()
		dirs.Prepare = func(img image.Image) image.Image { return fitter.Fit(img) }
	}
	if err := dirs.Ensure(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := issuance.NewIssuer(store, store, registry, engine, issuance.WithMetrics(m), issuance.WithSubjects(store))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	tokens, err := issuance.NewTokenGenerator(store, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Services{
		Store:    store,
		Registry: registry,
		Engine:   engine,
		Issuer:   issuer,
		Tokens:   tokens,
		Reporter: issuance.NewReporter(store, store, store),
		Janitor:  issuance.Janitor{Dirs: dirs, KeepCards: cfg.KeepCards, KeepPhotos: cfg.KeepPhotos, Metrics: m},
		Dirs:     dirs,
		Metrics:  m,
		Gatherer: reg,
	}, nil
}

// Close releases the store.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

func openStore(ctx context.Context, cfg Config) (storage.Store, error) {
	if url := strings.TrimSpace(cfg.DatabaseURL); url != "" {
		openCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
		defer cancel()
		store, err := postgres.Open(openCtx, url)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
