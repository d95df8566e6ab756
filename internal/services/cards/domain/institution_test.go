package domain

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
)

func TestDefaultRegistryIsClosedAndOrdered(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	if reg.Len() != 5 {
		t.Fatalf("expected 5 institutions, got %d", reg.Len())
	}
	list := reg.List()
	if list[0].ID != "1" || list[4].ID != "5" {
		t.Fatalf("unexpected order: %s..%s", list[0].ID, list[4].ID)
	}
	inst, ok := reg.Get("1")
	if !ok {
		t.Fatal("expected institution 1")
	}
	if len([]rune(inst.Name)) <= 35 {
		t.Fatalf("expected institution 1 name to exceed wrap threshold, got %q", inst.Name)
	}
	if inst.Colors.Primary != (color.NRGBA{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff}) {
		t.Fatalf("unexpected primary color %+v", inst.Colors.Primary)
	}
}

func TestLookupUnknownInstitution(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	_, err = reg.Lookup("99")
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidInstitution, "")) {
		t.Fatalf("expected invalid institution, got %v", err)
	}
}

func TestLoadRegistryResolvesEmblemRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "institutions.yaml")
	doc := `institutions:
  - id: tech
    name: Tech Institute
    authority: Registrar
    emblem: logo.png
    colors: {primary: "#000000", secondary: "#ffffff", text: "#111111"}
    departments: [Physics]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	inst, _ := reg.Get("tech")
	if inst.EmblemPath != filepath.Join(dir, "logo.png") {
		t.Fatalf("unexpected emblem path %q", inst.EmblemPath)
	}
	if inst.ShortName != "Tech Institute" {
		t.Fatalf("expected short name to default to name, got %q", inst.ShortName)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	inst := Institution{ID: "a", Name: "A", Departments: []string{"X"}}
	if _, err := NewRegistry([]Institution{inst, inst}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestParseRegistryRejectsBadColor(t *testing.T) {
	doc := `institutions:
  - id: a
    name: A
    colors: {primary: "blue", secondary: "#ffffff", text: "#000000"}
    departments: [X]
`
	if _, err := ParseRegistry([]byte(doc), ""); err == nil {
		t.Fatal("expected color parse error")
	}
}

func TestAccentCaptionFlipsOnLightBand(t *testing.T) {
	primary := color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	light := Palette{Primary: primary, Secondary: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}
	if got := light.AccentCaption(); got != primary {
		t.Fatalf("expected primary caption on white band, got %+v", got)
	}
	dark := Palette{Primary: primary, Secondary: color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}}
	if got := dark.AccentCaption(); got != (color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Fatalf("expected white caption on blue band, got %+v", got)
	}
}
