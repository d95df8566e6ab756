// Package server parses card service flags and launches the service.
package server

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/cardpress/internal/platform/cmd"
	server "github.com/louisbranch/cardpress/internal/services/cards/app"
)

// Config holds card service command configuration.
type Config struct {
	HTTPAddr          string        `env:"CARDPRESS_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr          string        `env:"CARDPRESS_GRPC_ADDR" envDefault:":8081"`
	DBPath            string        `env:"CARDPRESS_DB_PATH" envDefault:"data/cards.db"`
	DatabaseURL       string        `env:"CARDPRESS_DATABASE_URL"`
	CardsDir          string        `env:"CARDPRESS_CARDS_DIR" envDefault:"generated_cards"`
	PhotosDir         string        `env:"CARDPRESS_PHOTOS_DIR" envDefault:"user_photos"`
	InstitutionsFile  string        `env:"CARDPRESS_INSTITUTIONS_FILE"`
	FitUploads        bool          `env:"CARDPRESS_FIT_UPLOADS" envDefault:"false"`
	MaxUploadBytes    int64         `env:"CARDPRESS_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AdminUsername     string        `env:"CARDPRESS_ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string        `env:"CARDPRESS_ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `env:"CARDPRESS_JWT_SECRET"`
	AdminTokenTTL     time.Duration `env:"CARDPRESS_ADMIN_TOKEN_TTL" envDefault:"12h"`
	KeepCards         int           `env:"CARDPRESS_KEEP_CARDS" envDefault:"100"`
	KeepPhotos        int           `env:"CARDPRESS_KEEP_PHOTOS" envDefault:"200"`
	CleanupInterval   time.Duration `env:"CARDPRESS_CLEANUP_INTERVAL" envDefault:"1h"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP API listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The gRPC health listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL; overrides -db-path when set")
	fs.StringVar(&cfg.CardsDir, "cards-dir", cfg.CardsDir, "Directory for rendered cards")
	fs.StringVar(&cfg.PhotosDir, "photos-dir", cfg.PhotosDir, "Directory for uploaded photos")
	fs.StringVar(&cfg.InstitutionsFile, "institutions", cfg.InstitutionsFile, "YAML file overriding the built-in institutions")
	fs.BoolVar(&cfg.FitUploads, "fit-uploads", cfg.FitUploads, "Crop uploaded photos to the card photo box")
	fs.DurationVar(&cfg.CleanupInterval, "cleanup-interval", cfg.CleanupInterval, "Artifact retention sweep interval; 0 disables periodic sweeps")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AppConfig converts the command configuration to the service runtime config.
func (c Config) AppConfig() server.Config {
	return server.Config{
		HTTPAddr:          c.HTTPAddr,
		GRPCAddr:          c.GRPCAddr,
		DatabaseURL:       c.DatabaseURL,
		DBPath:            c.DBPath,
		CardsDir:          c.CardsDir,
		PhotosDir:         c.PhotosDir,
		InstitutionsFile:  c.InstitutionsFile,
		FitUploads:        c.FitUploads,
		MaxUploadBytes:    c.MaxUploadBytes,
		AdminUsername:     c.AdminUsername,
		AdminPasswordHash: c.AdminPasswordHash,
		JWTSecret:         c.JWTSecret,
		AdminTokenTTL:     c.AdminTokenTTL,
		KeepCards:         c.KeepCards,
		KeepPhotos:        c.KeepPhotos,
		CleanupInterval:   c.CleanupInterval,
	}
}

// Run starts the card issuance service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return server.Run(ctx, cfg.AppConfig())
	})
}
