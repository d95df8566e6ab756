// Package maintenance implements offline administration for the card store:
// artifact retention, token batches and statistics.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/cardpress/internal/platform/config"
	server "github.com/louisbranch/cardpress/internal/services/cards/app"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath           string        `env:"CARDPRESS_DB_PATH" envDefault:"data/cards.db"`
	DatabaseURL      string        `env:"CARDPRESS_DATABASE_URL"`
	CardsDir         string        `env:"CARDPRESS_CARDS_DIR" envDefault:"generated_cards"`
	PhotosDir        string        `env:"CARDPRESS_PHOTOS_DIR" envDefault:"user_photos"`
	InstitutionsFile string        `env:"CARDPRESS_INSTITUTIONS_FILE"`
	KeepCards        int           `env:"CARDPRESS_KEEP_CARDS" envDefault:"100"`
	KeepPhotos       int           `env:"CARDPRESS_KEEP_PHOTOS" envDefault:"200"`
	Creator          string        `env:"CARDPRESS_ADMIN_USERNAME" envDefault:"admin"`
	Timeout          time.Duration `env:"CARDPRESS_MAINTENANCE_TIMEOUT" envDefault:"10m"`

	Prune          bool
	GenerateTokens int
	Stats          bool
	ListUnused     int
	JSONOutput     bool
}

// ParseConfig loads environment defaults and then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the sqlite database (default: CARDPRESS_DB_PATH or data/cards.db)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL; overrides -db-path when set")
	fs.StringVar(&cfg.CardsDir, "cards-dir", cfg.CardsDir, "directory holding rendered cards")
	fs.StringVar(&cfg.PhotosDir, "photos-dir", cfg.PhotosDir, "directory holding uploaded photos")
	fs.IntVar(&cfg.KeepCards, "keep-cards", cfg.KeepCards, "cards retained by -prune")
	fs.IntVar(&cfg.KeepPhotos, "keep-photos", cfg.KeepPhotos, "photos retained by -prune")
	fs.StringVar(&cfg.Creator, "creator", cfg.Creator, "creator recorded on generated tokens")
	fs.BoolVar(&cfg.Prune, "prune", false, "delete cards and photos beyond the retention limits")
	fs.IntVar(&cfg.GenerateTokens, "generate-tokens", 0, fmt.Sprintf("create this many tokens (1-%d)", issuance.MaxTokensPerRequest))
	fs.BoolVar(&cfg.Stats, "stats", false, "print token and card statistics")
	fs.IntVar(&cfg.ListUnused, "list-unused", 0, "print up to this many unused tokens")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output a JSON report")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !c.Prune && c.GenerateTokens == 0 && !c.Stats && c.ListUnused == 0 {
		return errors.New("one of -prune, -generate-tokens, -stats or -list-unused is required")
	}
	if c.GenerateTokens < 0 || c.GenerateTokens > issuance.MaxTokensPerRequest {
		return fmt.Errorf("-generate-tokens must be between 1 and %d", issuance.MaxTokensPerRequest)
	}
	if c.ListUnused < 0 {
		return errors.New("-list-unused must be >= 0")
	}
	if c.GenerateTokens > 0 && strings.TrimSpace(c.Creator) == "" {
		return errors.New("-creator is required with -generate-tokens")
	}
	return nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		DBPath:           c.DBPath,
		DatabaseURL:      c.DatabaseURL,
		CardsDir:         c.CardsDir,
		PhotosDir:        c.PhotosDir,
		InstitutionsFile: c.InstitutionsFile,
		KeepCards:        c.KeepCards,
		KeepPhotos:       c.KeepPhotos,
	}
}

type report struct {
	Generated []string      `json:"generated,omitempty"`
	Pruned    *prunedReport `json:"pruned,omitempty"`
	Unused    []string      `json:"unused,omitempty"`
	Stats     *statsReport  `json:"stats,omitempty"`
}

type prunedReport struct {
	Cards  int `json:"cards"`
	Photos int `json:"photos"`
}

type statsReport struct {
	TokensTotal     int            `json:"tokens_total"`
	TokensUsed      int            `json:"tokens_used"`
	TokensAvailable int            `json:"tokens_available"`
	CardsTotal      int            `json:"cards_total"`
	CardsRecent     int            `json:"cards_recent"`
	SubjectsTotal   int            `json:"subjects_total"`
	ByInstitution   map[string]int `json:"by_institution"`
}

// Run executes the requested actions in order: generate, prune, list, stats.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	services, err := server.OpenServices(ctx, cfg.serverConfig())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close store: %v\n", closeErr)
		}
	}()

	var rep report
	if cfg.GenerateTokens > 0 {
		codes, err := services.Tokens.Generate(ctx, cfg.GenerateTokens, cfg.Creator)
		rep.Generated = codes
		if err != nil {
			printReport(out, rep, cfg.JSONOutput)
			return err
		}
	}
	if cfg.Prune {
		result := services.Janitor.Sweep()
		rep.Pruned = &prunedReport{Cards: result.Cards, Photos: result.Photos}
	}
	if cfg.ListUnused > 0 {
		tokens, err := services.Tokens.Unused(ctx, cfg.ListUnused)
		if err != nil {
			return err
		}
		rep.Unused = make([]string, 0, len(tokens))
		for _, token := range tokens {
			rep.Unused = append(rep.Unused, token.Code)
		}
	}
	if cfg.Stats {
		full, err := services.Reporter.Report(ctx)
		if err != nil {
			return err
		}
		stats := &statsReport{
			TokensTotal:     full.Tokens.Total,
			TokensUsed:      full.Tokens.Used,
			TokensAvailable: full.Tokens.Available,
			CardsTotal:      full.Issuances.Total,
			CardsRecent:     full.Issuances.Recent,
			SubjectsTotal:   full.Subjects.Total,
			ByInstitution:   make(map[string]int, len(full.Issuances.ByInstitution)),
		}
		for _, count := range full.Issuances.ByInstitution {
			stats.ByInstitution[count.InstitutionName] = count.Count
		}
		rep.Stats = stats
	}

	printReport(out, rep, cfg.JSONOutput)
	return nil
}

func printReport(out io.Writer, rep report, jsonOutput bool) {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(rep)
		return
	}
	if len(rep.Generated) > 0 {
		fmt.Fprintf(out, "Generated %d tokens:\n", len(rep.Generated))
		for _, code := range rep.Generated {
			fmt.Fprintf(out, "  %s\n", code)
		}
	}
	if rep.Pruned != nil {
		fmt.Fprintf(out, "Pruned %d cards and %d photos\n", rep.Pruned.Cards, rep.Pruned.Photos)
	}
	if rep.Unused != nil {
		fmt.Fprintf(out, "Unused tokens (%d):\n", len(rep.Unused))
		for _, code := range rep.Unused {
			fmt.Fprintf(out, "  %s\n", code)
		}
	}
	if rep.Stats != nil {
		s := rep.Stats
		fmt.Fprintf(out, "Tokens: total=%d used=%d available=%d\n", s.TokensTotal, s.TokensUsed, s.TokensAvailable)
		fmt.Fprintf(out, "Cards: total=%d recent=%d\n", s.CardsTotal, s.CardsRecent)
		fmt.Fprintf(out, "Subjects: total=%d\n", s.SubjectsTotal)
		for name, count := range s.ByInstitution {
			fmt.Fprintf(out, "  %s: %d\n", name, count)
		}
	}
}
