package mdblog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is everything a run needs. Relative roots are resolved against the
// working directory by Load.
type Config struct {
	SourceRoot         string    `yaml:"source_root" toml:"source_root"`
	OutputRoot         string    `yaml:"output_root" toml:"output_root"`
	TemplateDir        string    `yaml:"template_dir" toml:"template_dir"`
	TemplateEngine     string    `yaml:"template_engine" toml:"template_engine"`
	Markdown           string    `yaml:"markdown" toml:"markdown"`
	MarkdownExtensions []string  `yaml:"markdown_extensions" toml:"markdown_extensions"`
	TitleFile          string    `yaml:"title_file" toml:"title_file"`
	DefaultTitle       string    `yaml:"default_title" toml:"default_title"`
	Port               int       `yaml:"port" toml:"port"`
	Log                LogConfig `yaml:"log" toml:"log"`
}

const (
	DefaultSourceRoot   = "markdown"
	DefaultOutputRoot   = "blog"
	DefaultTemplateDir  = "templates"
	DefaultTitleFile    = "title.txt"
	DefaultListingTitle = "Title"
	DefaultPort         = 8000

	configFileName = "mdblog.yaml"
	envPrefix      = "MDBLOG_"
)

// DefaultConfig returns the built-in settings, before any file or
// environment is applied. Roots are still relative.
func DefaultConfig() Config {
	return Config{
		SourceRoot:         DefaultSourceRoot,
		OutputRoot:         DefaultOutputRoot,
		TemplateDir:        DefaultTemplateDir,
		TemplateEngine:     EngineHTML,
		Markdown:           MarkdownGoldmark,
		MarkdownExtensions: []string{".markdown"},
		TitleFile:          DefaultTitleFile,
		DefaultTitle:       DefaultListingTitle,
		Port:               DefaultPort,
		Log:                LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultConfigPath is the per-user config file consulted when neither
// --config nor ./mdblog.yaml is present.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "mdblog", "config.yaml")
}

// LoadConfig layers, lowest first: defaults, the config file, a .env file
// in the working directory, then MDBLOG_* variables. An explicit path must
// exist; the implicit ones are optional.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()
	explicit := path != ""
	if !explicit {
		for _, p := range []string{configFileName, DefaultConfigPath()} {
			if fi, _ := os.Stat(p); fi != nil && fi.Mode().IsRegular() {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err = cfg.readFile(path); err != nil {
			return
		}
	}
	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: .env: %w", ErrInvalidConfig, err)
	}
	if err = cfg.applyEnv(os.Getenv); err != nil {
		return
	}
	if err = cfg.resolve(); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

func (c *Config) readFile(path string) error {
	zb, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrInvalidConfig, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(zb, c)
	case ".toml":
		err = toml.Unmarshal(zb, c)
	default:
		return fmt.Errorf("%w: %s: unsupported config format", ErrInvalidConfig, path)
	}
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"SOURCE":          &c.SourceRoot,
		"OUTPUT":          &c.OutputRoot,
		"TEMPLATES":       &c.TemplateDir,
		"TEMPLATE_ENGINE": &c.TemplateEngine,
		"MARKDOWN":        &c.Markdown,
		"TITLE_FILE":      &c.TitleFile,
		"DEFAULT_TITLE":   &c.DefaultTitle,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
	}
	for k, p := range strs {
		if v := getenv(envPrefix + k); v != "" {
			*p = v
		}
	}
	if v := getenv(envPrefix + "MARKDOWN_EXTENSIONS"); v != "" {
		c.MarkdownExtensions = strings.Split(v, ",")
	}
	if v := getenv(envPrefix + "PORT"); v != "" {
		port, err := ParsePort(v)
		if err != nil {
			return err
		}
		c.Port = port
	}
	return nil
}

// resolve makes the roots absolute against the working directory.
func (c *Config) resolve() (err error) {
	for _, p := range []*string{&c.SourceRoot, &c.OutputRoot, &c.TemplateDir} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		if *p, err = filepath.Abs(*p); err != nil {
			return
		}
	}
	for i, ext := range c.MarkdownExtensions {
		c.MarkdownExtensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}
	return
}

// Validate checks roots, engines, extensions and the port.
func (c *Config) Validate() error {
	switch {
	case c.SourceRoot == "":
		return fmt.Errorf("%w: source_root is empty", ErrInvalidConfig)
	case c.OutputRoot == "":
		return fmt.Errorf("%w: output_root is empty", ErrInvalidConfig)
	case c.TemplateDir == "":
		return fmt.Errorf("%w: template_dir is empty", ErrInvalidConfig)
	case c.TitleFile == "":
		return fmt.Errorf("%w: title_file is empty", ErrInvalidConfig)
	case len(c.MarkdownExtensions) == 0:
		return fmt.Errorf("%w: markdown_extensions is empty", ErrInvalidConfig)
	}
	for _, ext := range c.MarkdownExtensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("%w: markdown extension %q must start with a dot", ErrInvalidConfig, ext)
		}
	}
	switch strings.ToLower(c.TemplateEngine) {
	case "", EngineHTML, EnginePongo2:
	default:
		return fmt.Errorf("%w: unknown template engine %q", ErrInvalidConfig, c.TemplateEngine)
	}
	switch strings.ToLower(c.Markdown) {
	case "", MarkdownGoldmark, MarkdownBlackfriday:
	default:
		return fmt.Errorf("%w: unknown markdown converter %q", ErrInvalidConfig, c.Markdown)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if err := checkOutputRoot(c.OutputRoot, "source_root", c.SourceRoot); err != nil {
		return err
	}
	return checkOutputRoot(c.OutputRoot, "template_dir", c.TemplateDir)
}

// checkOutputRoot rejects an output root at or below dir. Output written
// there would be walked again as source, or trip the watcher on every build.
func checkOutputRoot(out, key, dir string) error {
	if within(dir, out) {
		return fmt.Errorf("%w: output_root %s is inside %s %s", ErrInvalidConfig, out, key, dir)
	}
	return nil
}

// within reports whether fpath is dir or lies below it.
func within(dir, fpath string) bool {
	if dir == "" || fpath == "" {
		return false
	}
	dir, err1 := filepath.Abs(dir)
	fpath, err2 := filepath.Abs(fpath)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(dir, fpath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ParsePort accepts a decimal TCP port in 1..65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %q is not a port number", ErrInvalidPort, s)
	}
	return port, nil
}
