// Package config loads rscan configuration in a fixed order:
// defaults < global file < repo file < environment < CLI flags.
//
// Paths:
//   - Global: <user config dir>/rscan/config.toml (see os.UserConfigDir)
//   - Repo: .rscan/config.toml relative to the repository root
//
// Environment variables (override config files when set):
//   - RSCAN_OUTPUT (human, json or yaml), RSCAN_VIEW (current, additions or all)
//   - RSCAN_LOG_LEVEL (zerolog level name: trace, debug, info, warn, error, disabled)
//   - RSCAN_CACHE_SIZE (lines memoised by the literal scanner; 0 = default)
//   - RSCAN_EXCLUDE_PATTERNS, RSCAN_EXTENSIONS (comma-separated lists)
//   - RSCAN_TIMEOUT (Go duration string or integer seconds), RSCAN_BASE_REF
//   - RSCAN_TRACE (1/true/yes/on or 0/false/no/off)
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"rscan/cli/internal/erruser"
)

// Config holds all rscan configuration. Nil ExcludePatterns or Extensions
// mean "use the diff package defaults"; an empty non-nil list disables the
// filter.
type Config struct {
	Output          string        `toml:"output"`
	View            string        `toml:"view"`
	LogLevel        string        `toml:"log_level"`
	CacheSize       int           `toml:"cache_size"`
	ExcludePatterns []string      `toml:"exclude_patterns"`
	Extensions      []string      `toml:"extensions"`
	Timeout         time.Duration `toml:"timeout"`
	BaseRef         string        `toml:"base_ref"`
	Trace           bool          `toml:"trace"`
}

// Overrides are CLI flag values. A non-nil pointer overrides.
type Overrides struct {
	Output          *string
	View            *string
	LogLevel        *string
	CacheSize       *int
	ExcludePatterns *[]string
	Extensions      *[]string
	Timeout         *time.Duration
	BaseRef         *string
	Trace           *bool
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot enables the repo config file RepoRoot/.rscan/config.toml.
	RepoRoot string
	// GlobalConfigPath replaces the XDG path when set.
	GlobalConfigPath string
	// Env is a key=value slice; nil means os.Environ().
	Env []string
	// Overrides are applied last.
	Overrides *Overrides
}

// Output formats.
const (
	OutputHuman = "human"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Entry views.
const (
	ViewCurrent   = "current"
	ViewAdditions = "additions"
	ViewAll       = "all"
)

const (
	_defaultOutput   = OutputHuman
	_defaultView     = ViewCurrent
	_defaultLogLevel = "warn"
	_defaultTimeout  = 2 * time.Minute
	_defaultBaseRef  = "HEAD~1"
	_repoConfigPath  = ".rscan/config.toml"
)

var validOutput = map[string]struct{}{OutputHuman: {}, OutputJSON: {}, OutputYAML: {}}

var validView = map[string]struct{}{ViewCurrent: {}, ViewAdditions: {}, ViewAll: {}}

// normalizeOutput trims and lowercases s and checks it names an output format.
func normalizeOutput(s string) (string, error) {
	norm := strings.TrimSpace(strings.ToLower(s))
	if _, ok := validOutput[norm]; !ok {
		return "", erruser.New("Invalid output format; use human, json, or yaml.", nil)
	}
	return norm, nil
}

func normalizeView(s string) (string, error) {
	norm := strings.TrimSpace(strings.ToLower(s))
	if _, ok := validView[norm]; !ok {
		return "", erruser.New("Invalid view; use current, additions, or all.", nil)
	}
	return norm, nil
}

func normalizeLogLevel(s string) (string, error) {
	lvl, err := zerolog.ParseLevel(strings.TrimSpace(strings.ToLower(s)))
	if err != nil {
		return "", erruser.New("Invalid log level; use trace, debug, info, warn, error, or disabled.", err)
	}
	if lvl == zerolog.NoLevel {
		return "", erruser.New("Invalid log level; use trace, debug, info, warn, error, or disabled.", nil)
	}
	return lvl.String(), nil
}

// errIntOverflow is returned when an int64 value does not fit in int.
var errIntOverflow = errors.New("value out of range for int")

func int64ToInt(n int64) (int, error) {
	if n < int64(math.MinInt) || n > int64(math.MaxInt) {
		return 0, errIntOverflow
	}
	return int(n), nil
}

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		Output:   _defaultOutput,
		View:     _defaultView,
		LogLevel: _defaultLogLevel,
		Timeout:  _defaultTimeout,
		BaseRef:  _defaultBaseRef,
	}
}

// Level returns the configured zerolog level, falling back to warn.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return lvl
}

// Load loads configuration with precedence: defaults < global file < repo
// file < env < overrides. Missing files are ignored; invalid TOML or env
// values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "rscan", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(opts.RepoRoot, _repoConfigPath)); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	if err := applyOverrides(&cfg, opts.Overrides); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile reads path and merges the keys it sets into cfg. Empty strings
// keep the previous value. A missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		Output          *string   `toml:"output"`
		View            *string   `toml:"view"`
		LogLevel        *string   `toml:"log_level"`
		CacheSize       *int64    `toml:"cache_size"`
		ExcludePatterns *[]string `toml:"exclude_patterns"`
		Extensions      *[]string `toml:"extensions"`
		Timeout         *string   `toml:"timeout"`
		BaseRef         *string   `toml:"base_ref"`
		Trace           *bool     `toml:"trace"`
	}
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return erruser.Newf(err, "Invalid configuration in %s.", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return erruser.Newf(nil, "Unknown configuration key %q in %s.", undecoded[0].String(), path)
	}
	if file.Output != nil && *file.Output != "" {
		v, err := normalizeOutput(*file.Output)
		if err != nil {
			return err
		}
		cfg.Output = v
	}
	if file.View != nil && *file.View != "" {
		v, err := normalizeView(*file.View)
		if err != nil {
			return err
		}
		cfg.View = v
	}
	if file.LogLevel != nil && *file.LogLevel != "" {
		v, err := normalizeLogLevel(*file.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = v
	}
	if file.CacheSize != nil && *file.CacheSize >= 0 {
		v, err := int64ToInt(*file.CacheSize)
		if err != nil {
			return erruser.New("Configuration cache_size value out of range.", err)
		}
		cfg.CacheSize = v
	}
	if file.ExcludePatterns != nil {
		cfg.ExcludePatterns = *file.ExcludePatterns
	}
	if file.Extensions != nil {
		cfg.Extensions = normalizeExtensions(*file.Extensions)
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New("Configuration timeout is invalid.", err)
		}
		cfg.Timeout = d
	}
	if file.BaseRef != nil && *file.BaseRef != "" {
		cfg.BaseRef = *file.BaseRef
	}
	if file.Trace != nil {
		cfg.Trace = *file.Trace
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// normalizeExtensions lowercases entries and adds a missing leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// splitList splits a comma-separated env value, dropping empty items.
func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const (
	envOutput          = "RSCAN_OUTPUT"
	envView            = "RSCAN_VIEW"
	envLogLevel        = "RSCAN_LOG_LEVEL"
	envCacheSize       = "RSCAN_CACHE_SIZE"
	envExcludePatterns = "RSCAN_EXCLUDE_PATTERNS"
	envExtensions      = "RSCAN_EXTENSIONS"
	envTimeout         = "RSCAN_TIMEOUT"
	envBaseRef         = "RSCAN_BASE_REF"
	envTrace           = "RSCAN_TRACE"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		vals[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}
	if v, ok := vals[envOutput]; ok && v != "" {
		out, err := normalizeOutput(v)
		if err != nil {
			return erruser.New("RSCAN_OUTPUT must be human, json, or yaml.", err)
		}
		cfg.Output = out
	}
	if v, ok := vals[envView]; ok && v != "" {
		view, err := normalizeView(v)
		if err != nil {
			return erruser.New("RSCAN_VIEW must be current, additions, or all.", err)
		}
		cfg.View = view
	}
	if v, ok := vals[envLogLevel]; ok && v != "" {
		lvl, err := normalizeLogLevel(v)
		if err != nil {
			return erruser.New("RSCAN_LOG_LEVEL must be a log level name.", err)
		}
		cfg.LogLevel = lvl
	}
	if v, ok := vals[envCacheSize]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return erruser.New("RSCAN_CACHE_SIZE must be a valid number.", err)
		}
		if n < 0 {
			return erruser.New("RSCAN_CACHE_SIZE must be non-negative.", nil)
		}
		cfg.CacheSize, err = int64ToInt(n)
		if err != nil {
			return erruser.New("RSCAN_CACHE_SIZE value out of range.", err)
		}
	}
	if v, ok := vals[envExcludePatterns]; ok {
		cfg.ExcludePatterns = splitList(v)
	}
	if v, ok := vals[envExtensions]; ok {
		cfg.Extensions = normalizeExtensions(splitList(v))
	}
	if v, ok := vals[envTimeout]; ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New("RSCAN_TIMEOUT must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	if v, ok := vals[envBaseRef]; ok && v != "" {
		cfg.BaseRef = v
	}
	if v, ok := vals[envTrace]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("RSCAN_TRACE must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.Trace = b
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func applyOverrides(cfg *Config, o *Overrides) error {
	if o == nil {
		return nil
	}
	if o.Output != nil && *o.Output != "" {
		v, err := normalizeOutput(*o.Output)
		if err != nil {
			return err
		}
		cfg.Output = v
	}
	if o.View != nil && *o.View != "" {
		v, err := normalizeView(*o.View)
		if err != nil {
			return err
		}
		cfg.View = v
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		v, err := normalizeLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = v
	}
	if o.CacheSize != nil {
		v := *o.CacheSize
		if v < 0 {
			v = 0
		}
		cfg.CacheSize = v
	}
	if o.ExcludePatterns != nil {
		cfg.ExcludePatterns = *o.ExcludePatterns
	}
	if o.Extensions != nil {
		cfg.Extensions = normalizeExtensions(*o.Extensions)
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.BaseRef != nil && *o.BaseRef != "" {
		cfg.BaseRef = *o.BaseRef
	}
	if o.Trace != nil {
		cfg.Trace = *o.Trace
	}
	return nil
}
