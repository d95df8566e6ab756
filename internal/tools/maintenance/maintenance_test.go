package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/cards.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.KeepCards != 100 || cfg.KeepPhotos != 200 {
		t.Fatalf("expected default retention, got %d/%d", cfg.KeepCards, cfg.KeepPhotos)
	}
	if cfg.Timeout != 10*time.Minute {
		t.Fatalf("expected 10m timeout, got %v", cfg.Timeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("CARDPRESS_DB_PATH", "env.db")
	t.Setenv("CARDPRESS_KEEP_CARDS", "7")
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "flag.db", "-generate-tokens", "5", "-json"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("expected flag override, got %q", cfg.DBPath)
	}
	if cfg.KeepCards != 7 {
		t.Fatalf("expected env keep cards, got %d", cfg.KeepCards)
	}
	if cfg.GenerateTokens != 5 || !cfg.JSONOutput {
		t.Fatalf("unexpected flags %+v", cfg)
	}
}

func TestRunRequiresAction(t *testing.T) {
	cfg := tempConfig(t)
	if err := Run(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected missing action error")
	}
	cfg.GenerateTokens = 500
	if err := Run(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected oversized batch error")
	}
}

func TestRunGenerateListAndStatsJSON(t *testing.T) {
	cfg := tempConfig(t)
	cfg.GenerateTokens = 4
	cfg.ListUnused = 10
	cfg.Stats = true
	cfg.JSONOutput = true

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report %s: %v", out.String(), err)
	}
	if len(rep.Generated) != 4 || len(rep.Unused) != 4 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Stats == nil || rep.Stats.TokensTotal != 4 || rep.Stats.TokensAvailable != 4 {
		t.Fatalf("unexpected stats %+v", rep.Stats)
	}
}

func TestRunPruneText(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Prune = true
	cfg.KeepCards = 1
	if err := os.MkdirAll(cfg.CardsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if err := os.WriteFile(filepath.Join(cfg.CardsDir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Pruned 2 cards and 0 photos") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func tempConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		DBPath:     filepath.Join(root, "cards.db"),
		CardsDir:   filepath.Join(root, "cards"),
		PhotosDir:  filepath.Join(root, "photos"),
		KeepCards:  100,
		KeepPhotos: 200,
		Creator:    "admin",
	}
}
