package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fetchq/internal/metadata"
)

//go:embed config_schema.cue
var schemaSource string

// Config holds the tunables of the validation engine and the CLI.
type Config struct {
	Debounce      time.Duration // remote validator debounce window
	LookupTimeout time.Duration // per-call metadata lookup bound; 0 disables
	MetadataTTL   time.Duration // cache entry lifetime; 0 keeps entries
	RateLimit     float64       // metadata calls per second; 0 disables
	Burst         int
	Snapshot      string // SQLite metadata snapshot
	Fixture       string // YAML metadata fixture
	Format        string // default output format
}

// fileConfig is the decoded shape of a config file.
type fileConfig struct {
	Debounce      *string  `json:"debounce"`
	LookupTimeout *string  `json:"lookup_timeout"`
	MetadataTTL   *string  `json:"metadata_ttl"`
	RateLimit     *float64 `json:"rate_limit"`
	Burst         *int     `json:"burst"`
	Snapshot      *string  `json:"snapshot"`
	Fixture       *string  `json:"fixture"`
	Format        *string  `json:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debounce:      250 * time.Millisecond,
		LookupTimeout: 10 * time.Second,
		MetadataTTL:   5 * time.Minute,
		Burst:         1,
		Format:        "text",
	}
}

// Load reads a CUE config file and applies it over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse validates CUE source against the schema and applies it over
// Default. filename is used in error positions only.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("config_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return fc.apply(Default())
}

func (fc fileConfig) apply(cfg *Config) (*Config, error) {
	durations := []struct {
		field string
		src   *string
		dst   *time.Duration
	}{
		{"debounce", fc.Debounce, &cfg.Debounce},
		{"lookup_timeout", fc.LookupTimeout, &cfg.LookupTimeout},
		{"metadata_ttl", fc.MetadataTTL, &cfg.MetadataTTL},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %s: %w", d.field, err)
		}
		*d.dst = v
	}

	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.Burst != nil {
		cfg.Burst = *fc.Burst
	}
	if fc.Snapshot != nil {
		cfg.Snapshot = *fc.Snapshot
	}
	if fc.Fixture != nil {
		cfg.Fixture = *fc.Fixture
	}
	if fc.Format != nil {
		cfg.Format = *fc.Format
	}
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Snapshot, &c.Fixture} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// CacheOptions returns the metadata cache settings of c.
func (c *Config) CacheOptions() []metadata.CacheOption {
	return []metadata.CacheOption{
		metadata.WithTTL(c.MetadataTTL),
		metadata.WithLookupTimeout(c.LookupTimeout),
		metadata.WithRateLimit(c.RateLimit, c.Burst),
	}
}
