package mdblog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	writeFile(t, path, "", time.Time{})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	wd, _ := os.Getwd()
	if cfg.SourceRoot != filepath.Join(wd, DefaultSourceRoot) {
		t.Fatalf("expected absolute default source root, got %q", cfg.SourceRoot)
	}
	if cfg.OutputRoot != filepath.Join(wd, DefaultOutputRoot) {
		t.Fatalf("expected absolute default output root, got %q", cfg.OutputRoot)
	}
	if cfg.TemplateDir != filepath.Join(wd, DefaultTemplateDir) {
		t.Fatalf("expected absolute default template dir, got %q", cfg.TemplateDir)
	}
	if cfg.Port != DefaultPort || cfg.DefaultTitle != "Title" || cfg.TitleFile != "title.txt" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.MarkdownExtensions) != 1 || cfg.MarkdownExtensions[0] != ".markdown" {
		t.Fatalf("unexpected default extensions: %v", cfg.MarkdownExtensions)
	}
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "site.yaml")
	writeFile(t, yamlPath, `
source_root: /srv/notes
output_root: /srv/www
template_engine: pongo2
markdown: blackfriday
markdown_extensions: [".markdown", ".MD"]
default_title: Notes
port: 9000
log:
  level: debug
  format: json
`, time.Time{})
	tomlPath := filepath.Join(dir, "site.toml")
	writeFile(t, tomlPath, `
source_root = "/srv/notes"
output_root = "/srv/www"
template_engine = "pongo2"
markdown = "blackfriday"
markdown_extensions = [".markdown", ".MD"]
default_title = "Notes"
port = 9000

[log]
level = "debug"
format = "json"
`, time.Time{})

	for _, path := range []string{yamlPath, tomlPath} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("%s: load: %v", path, err)
		}
		if cfg.SourceRoot != filepath.Clean("/srv/notes") && cfg.SourceRoot != "/srv/notes" {
			t.Errorf("%s: source root %q", path, cfg.SourceRoot)
		}
		if cfg.TemplateEngine != EnginePongo2 || cfg.Markdown != MarkdownBlackfriday {
			t.Errorf("%s: engines %q / %q", path, cfg.TemplateEngine, cfg.Markdown)
		}
		if cfg.MarkdownExtensions[1] != ".md" {
			t.Errorf("%s: expected extensions lowercased, got %v", path, cfg.MarkdownExtensions)
		}
		if cfg.DefaultTitle != "Notes" || cfg.Port != 9000 {
			t.Errorf("%s: title %q port %d", path, cfg.DefaultTitle, cfg.Port)
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
			t.Errorf("%s: log %+v", path, cfg.Log)
		}
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, "port: 9000\ndefault_title: FromFile\n", time.Time{})
	t.Setenv("MDBLOG_PORT", "9100")
	t.Setenv("MDBLOG_DEFAULT_TITLE", "FromEnv")
	t.Setenv("MDBLOG_MARKDOWN_EXTENSIONS", ".markdown,.md")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9100 || cfg.DefaultTitle != "FromEnv" {
		t.Fatalf("expected env to win, got port %d title %q", cfg.Port, cfg.DefaultTitle)
	}
	if len(cfg.MarkdownExtensions) != 2 || cfg.MarkdownExtensions[1] != ".md" {
		t.Fatalf("unexpected extensions %v", cfg.MarkdownExtensions)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		env     map[string]string
		want    error
	}{
		{"missing file", "missing.yaml", "", nil, ErrInvalidConfig},
		{"unknown format", "site.ini", "x=1", nil, ErrInvalidConfig},
		{"bad yaml", "bad.yaml", "port: [", nil, ErrInvalidConfig},
		{"bad engine", "engine.yaml", "template_engine: jinja\n", nil, ErrInvalidConfig},
		{"bad markdown", "md.yaml", "markdown: pandoc\n", nil, ErrInvalidConfig},
		{"bad extension", "ext.yaml", "markdown_extensions: [markdown]\n", nil, ErrInvalidConfig},
		{"bad port", "port.yaml", "port: 70000\n", nil, ErrInvalidPort},
		{"output inside source", "nested.yaml", "source_root: /srv/notes\noutput_root: /srv/notes/blog\n", nil, ErrInvalidConfig},
		{"output is source", "same.yaml", "source_root: /srv/notes\noutput_root: /srv/notes\n", nil, ErrInvalidConfig},
		{"output inside templates", "tmpl.yaml", "template_dir: /srv/tmpl\noutput_root: /srv/tmpl/out\n", nil, ErrInvalidConfig},
		{"output inside source via env", "envnested.yaml", "source_root: /srv/notes\n", map[string]string{"MDBLOG_OUTPUT": "/srv/notes/blog"}, ErrInvalidConfig},
		{"bad env port", "envport.yaml", "", map[string]string{"MDBLOG_PORT": "http"}, ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if tt.name != "missing file" {
				writeFile(t, path, tt.content, time.Time{})
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(path); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in   string
		want int
		err  bool
	}{
		{"8000", 8000, false},
		{" 8080 ", 8080, false},
		{"1", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"-1", 0, true},
		{"eighty", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePort(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidPort) {
				t.Errorf("ParsePort(%q): expected ErrInvalidPort, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePort(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

// unsetEnv clears keys for the rest of the test and restores them after.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfigDiscovery(t *testing.T) {
	t.Cleanup(xdg.Reload)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)
	xdg.Reload()
	t.Chdir(t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	if DefaultConfigPath() != filepath.Join(xdgHome, "mdblog", "config.yaml") {
		t.Fatalf("unexpected default config path %q", DefaultConfigPath())
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load without files: %v", err)
	}
	if cfg.DefaultTitle != DefaultListingTitle {
		t.Fatalf("expected defaults without config files, got %q", cfg.DefaultTitle)
	}

	writeFile(t, DefaultConfigPath(), "default_title: FromXDG\n", time.Time{})
	if cfg, err = LoadConfig(""); err != nil {
		t.Fatalf("load xdg: %v", err)
	}
	if cfg.DefaultTitle != "FromXDG" {
		t.Fatalf("expected the per-user config, got %q", cfg.DefaultTitle)
	}
	if cfg.SourceRoot != filepath.Join(wd, DefaultSourceRoot) {
		t.Fatalf("expected roots relative to the working directory, got %q", cfg.SourceRoot)
	}

	writeFile(t, filepath.Join(wd, "mdblog.yaml"), "default_title: FromCwd\n", time.Time{})
	if cfg, err = LoadConfig(""); err != nil {
		t.Fatalf("load cwd: %v", err)
	}
	if cfg.DefaultTitle != "FromCwd" {
		t.Fatalf("expected ./mdblog.yaml to win over the per-user config, got %q", cfg.DefaultTitle)
	}
}

func TestLoadConfigDotenv(t *testing.T) {
	unsetEnv(t, "MDBLOG_DEFAULT_TITLE", "MDBLOG_PORT")
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, ".env"), "MDBLOG_DEFAULT_TITLE=FromDotenv\nMDBLOG_PORT=9200\n", time.Time{})
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, "default_title: FromFile\nport: 9000\n", time.Time{})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultTitle != "FromDotenv" || cfg.Port != 9200 {
		t.Fatalf("expected .env to win over the file, got title %q port %d", cfg.DefaultTitle, cfg.Port)
	}

	// variables already in the environment are not replaced by .env
	t.Setenv("MDBLOG_PORT", "9300")
	if cfg, err = LoadConfig(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9300 {
		t.Fatalf("expected the environment to win over .env, got %d", cfg.Port)
	}

	writeFile(t, filepath.Join(dir, ".env"), "BAD!KEY=1\n", time.Time{})
	unsetEnv(t, "MDBLOG_DEFAULT_TITLE", "MDBLOG_PORT")
	if _, err = LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for a broken .env, got %v", err)
	}
}
