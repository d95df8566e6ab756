package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	CardsDir string `env:"CARDPRESS_CMD_TEST_CARDS_DIR" envDefault:"data/cards"`
	HTTPAddr string `env:"CARDPRESS_CMD_TEST_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
}

func TestParseConfigFromArgsFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CARDPRESS_CMD_TEST_CARDS_DIR", "/env/cards")
	t.Setenv("CARDPRESS_CMD_TEST_HTTP_ADDR", "env:9000")

	var cfg testConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", "", "address")
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "address")
	if err := ParseArgs(fs, []string{"-addr", "flag:9001"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if cfg.HTTPAddr != "flag:9001" {
		t.Fatalf("expected flag address, got %q", cfg.HTTPAddr)
	}
	if cfg.CardsDir != "/env/cards" {
		t.Fatalf("expected env cards dir, got %q", cfg.CardsDir)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestLogPrefix(t *testing.T) {
	if got := LogPrefix(" server "); got != "[SERVER] " {
		t.Fatalf("unexpected prefix %q", got)
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceServer, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("CARDPRESS_OTEL_ENDPOINT", "")
	want := errors.New("boom")
	err := RunWithTelemetry(context.Background(), ServiceMaintenance, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected run error, got %v", err)
	}
}
