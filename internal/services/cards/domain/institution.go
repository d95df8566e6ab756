// Package domain holds the card issuance vocabulary: institution profiles,
// subject fields, verification payloads and the cosmetic generators.
package domain

import (
	_ "embed"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/louisbranch/cardpress/internal/platform/config"
	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
)

//go:embed institutions.yaml
var defaultInstitutions []byte

// lightAccentThreshold is the CIE L* above which white text on the accent
// band loses contrast.
const lightAccentThreshold = 0.8

// Palette is the resolved color set of one institution.
type Palette struct {
	Primary   color.NRGBA
	Secondary color.NRGBA
	Text      color.NRGBA
}

// AccentCaption returns the color for text drawn on the secondary band.
func (p Palette) AccentCaption() color.NRGBA {
	c, _ := colorful.MakeColor(p.Secondary)
	if l, _, _ := c.Lab(); l > lightAccentThreshold {
		return p.Primary
	}
	return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// Institution is an immutable issuing organization profile.
type Institution struct {
	ID          string
	Name        string
	ShortName   string
	Authority   string
	EmblemPath  string
	Colors      Palette
	Departments []string
}

// HasEmblem reports whether an emblem path is configured.
func (i Institution) HasEmblem() bool {
	return strings.TrimSpace(i.EmblemPath) != ""
}

type institutionsDocument struct {
	Institutions []institutionDocument `yaml:"institutions"`
}

type institutionDocument struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	ShortName   string   `yaml:"short_name"`
	Authority   string   `yaml:"authority"`
	Emblem      string   `yaml:"emblem"`
	Departments []string `yaml:"departments"`
	Colors      struct {
		Primary   string `yaml:"primary"`
		Secondary string `yaml:"secondary"`
		Text      string `yaml:"text"`
	} `yaml:"colors"`
}

// Registry is the closed set of institutions known to the process.
type Registry struct {
	order []string
	byID  map[string]Institution
}

// NewRegistry validates institutions and freezes them into a registry.
func NewRegistry(institutions []Institution) (*Registry, error) {
	if len(institutions) == 0 {
		return nil, fmt.Errorf("at least one institution is required")
	}
	r := &Registry{byID: make(map[string]Institution, len(institutions))}
	for _, inst := range institutions {
		inst.ID = strings.TrimSpace(inst.ID)
		switch {
		case inst.ID == "":
			return nil, fmt.Errorf("institution id is required")
		case strings.TrimSpace(inst.Name) == "":
			return nil, fmt.Errorf("institution %s: name is required", inst.ID)
		case len(inst.Departments) == 0:
			return nil, fmt.Errorf("institution %s: at least one department is required", inst.ID)
		}
		if _, exists := r.byID[inst.ID]; exists {
			return nil, fmt.Errorf("institution %s: duplicate id", inst.ID)
		}
		if inst.ShortName == "" {
			inst.ShortName = inst.Name
		}
		inst.Departments = append([]string(nil), inst.Departments...)
		r.byID[inst.ID] = inst
		r.order = append(r.order, inst.ID)
	}
	return r, nil
}

// DefaultRegistry returns the built-in institution set. Emblem paths stay
// relative to the working directory.
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultInstitutions, "")
}

// LoadRegistry reads institutions from a YAML file, or the built-in set when
// path is empty. Relative emblem paths resolve against the file's directory.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRegistry()
	}
	var doc institutionsDocument
	if err := config.LoadYAMLFile(path, &doc); err != nil {
		return nil, fmt.Errorf("load institutions: %w", err)
	}
	return fromDocument(doc, filepath.Dir(path))
}

// ParseRegistry decodes institutions from YAML bytes.
func ParseRegistry(data []byte, baseDir string) (*Registry, error) {
	var doc institutionsDocument
	if err := config.DecodeYAML(data, &doc); err != nil {
		return nil, fmt.Errorf("parse institutions: %w", err)
	}
	return fromDocument(doc, baseDir)
}

func fromDocument(doc institutionsDocument, baseDir string) (*Registry, error) {
	institutions := make([]Institution, 0, len(doc.Institutions))
	for _, d := range doc.Institutions {
		palette, err := parsePalette(d.Colors.Primary, d.Colors.Secondary, d.Colors.Text)
		if err != nil {
			return nil, fmt.Errorf("institution %s: %w", d.ID, err)
		}
		emblem := strings.TrimSpace(d.Emblem)
		if emblem != "" && baseDir != "" && !filepath.IsAbs(emblem) {
			emblem = filepath.Join(baseDir, emblem)
		}
		institutions = append(institutions, Institution{
			ID:          d.ID,
			Name:        strings.TrimSpace(d.Name),
			ShortName:   strings.TrimSpace(d.ShortName),
			Authority:   strings.TrimSpace(d.Authority),
			EmblemPath:  emblem,
			Colors:      palette,
			Departments: d.Departments,
		})
	}
	return NewRegistry(institutions)
}

func parsePalette(primary, secondary, text string) (Palette, error) {
	var p Palette
	var err error
	if p.Primary, err = parseHex(primary); err != nil {
		return p, fmt.Errorf("primary color: %w", err)
	}
	if p.Secondary, err = parseHex(secondary); err != nil {
		return p, fmt.Errorf("secondary color: %w", err)
	}
	if p.Text, err = parseHex(text); err != nil {
		return p, fmt.Errorf("text color: %w", err)
	}
	return p, nil
}

func parseHex(value string) (color.NRGBA, error) {
	c, err := colorful.Hex(strings.TrimSpace(value))
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Get returns the institution with id.
func (r *Registry) Get(id string) (Institution, bool) {
	if r == nil {
		return Institution{}, false
	}
	inst, ok := r.byID[strings.TrimSpace(id)]
	return inst, ok
}

// Lookup is Get with an INVALID_INSTITUTION error for unknown ids.
func (r *Registry) Lookup(id string) (Institution, error) {
	inst, ok := r.Get(id)
	if !ok {
		return Institution{}, apperrors.WithMetadata(apperrors.CodeInvalidInstitution,
			fmt.Sprintf("unknown institution %q", id), map[string]string{"institution_id": id})
	}
	return inst, nil
}

// List returns the institutions in configuration order.
func (r *Registry) List() []Institution {
	if r == nil {
		return nil
	}
	out := make([]Institution, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of institutions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
