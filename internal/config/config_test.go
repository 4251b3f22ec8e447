package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default endpoint targets the bulletin", func(t *testing.T) {
		t.Parallel()
		if cfg.Endpoint != DefaultEndpoint {
			t.Errorf("expected Endpoint %q, got %q", DefaultEndpoint, cfg.Endpoint)
		}
		if cfg.Origin != "https://web.pcc.gov.tw" {
			t.Errorf("expected Origin 'https://web.pcc.gov.tw', got %q", cfg.Origin)
		}
	})

	t.Run("default page size is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.PageSize != 100 {
			t.Errorf("expected PageSize 100, got %d", cfg.PageSize)
		}
	})

	t.Run("default spacing is 1.5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.RequestSpacing != 1500*time.Millisecond {
			t.Errorf("expected RequestSpacing 1.5s, got %v", cfg.RequestSpacing)
		}
	})

	t.Run("default year range starts at 88 and ends this year", func(t *testing.T) {
		t.Parallel()
		if cfg.StartYear != 88 {
			t.Errorf("expected StartYear 88, got %d", cfg.StartYear)
		}
		if want := time.Now().Year() - 1911; cfg.EndYear != want {
			t.Errorf("expected EndYear %d, got %d", want, cfg.EndYear)
		}
	})

	t.Run("both status types are searched", func(t *testing.T) {
		t.Parallel()
		if len(cfg.StatusTypes) != 2 || cfg.StatusTypes[0] != "招標" || cfg.StatusTypes[1] != "決標" {
			t.Errorf("unexpected StatusTypes %v", cfg.StatusTypes)
		}
	})

	t.Run("default headers look like a browser", func(t *testing.T) {
		t.Parallel()
		if !strings.Contains(cfg.Headers["User-Agent"], "Chrome/139") {
			t.Errorf("unexpected User-Agent %q", cfg.Headers["User-Agent"])
		}
		if cfg.Headers["Accept-Language"] == "" {
			t.Error("expected Accept-Language header")
		}
	})

	t.Run("database is enabled under XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

// TestConfigSite tests the immutable request settings view.
func TestConfigSite(t *testing.T) {
	t.Parallel()

	t.Run("fills Referer and Origin", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		site := cfg.Site()

		if site.Headers["Referer"] != cfg.Endpoint {
			t.Errorf("expected Referer %q, got %q", cfg.Endpoint, site.Headers["Referer"])
		}
		if site.Headers["Origin"] != cfg.Origin {
			t.Errorf("expected Origin %q, got %q", cfg.Origin, site.Headers["Origin"])
		}
	})

	t.Run("explicit Referer is kept", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Headers["Referer"] = "https://example.com/"
		if got := cfg.Site().Headers["Referer"]; got != "https://example.com/" {
			t.Errorf("expected explicit Referer, got %q", got)
		}
	})

	t.Run("mutating the snapshot leaves the config alone", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		site := cfg.Site()
		site.Headers["User-Agent"] = "changed"
		site.StatusTypes[0] = "changed"

		if cfg.Headers["User-Agent"] == "changed" {
			t.Error("headers map was shared")
		}
		if cfg.StatusTypes[0] == "changed" {
			t.Error("status types slice was shared")
		}
	})
}

// TestConfigYears tests the fiscal year iteration.
func TestConfigYears(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.StartYear = 110
	cfg.EndYear = 113

	got := cfg.Years()
	want := []int{110, 111, 112, 113}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	cfg.EndYear = 100
	if years := cfg.Years(); years != nil {
		t.Errorf("expected nil for inverted range, got %v", years)
	}
}

// TestConfigValidate tests the Validate method.
// Each case breaks exactly one rule of an otherwise valid config.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Query = "台灣電力"
		cfg.StartYear = 110
		cfg.EndYear = 112
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty query", func(c *Config) { c.Query = "" }, ErrNoQuery},
		{"inverted year range", func(c *Config) { c.StartYear, c.EndYear = 113, 110 }, ErrInvalidYearRange},
		{"zero start year", func(c *Config) { c.StartYear = 0 }, ErrInvalidYearRange},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"negative spacing", func(c *Config) { c.RequestSpacing = -time.Millisecond }, ErrInvalidSpacing},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidRetries},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, ErrInvalidPageSize},
		{"relative endpoint", func(c *Config) { c.Endpoint = "/prkms/readBulletion" }, ErrInvalidEndpoint},
		{"ftp endpoint", func(c *Config) { c.Endpoint = "ftp://web.pcc.gov.tw/x" }, ErrInvalidEndpoint},
		{"proxy without port", func(c *Config) { c.ProxyAddress = "127.0.0.1" }, ErrInvalidProxyAddress},
		{"proxy with bad port", func(c *Config) { c.ProxyAddress = "127.0.0.1:70000" }, ErrInvalidProxyAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero spacing and retries are valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.RequestSpacing = 0
		cfg.MaxRetries = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("valid proxy passes", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ProxyAddress = "127.0.0.1:1080"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestFileApply tests merging file settings over defaults.
func TestFileApply(t *testing.T) {
	t.Parallel()

	t.Run("empty file changes nothing", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		before := *cfg
		(&File{}).Apply(cfg)

		if cfg.Endpoint != before.Endpoint || cfg.RequestSpacing != before.RequestSpacing ||
			cfg.MaxRetries != before.MaxRetries || cfg.PageSize != before.PageSize {
			t.Error("empty file should not change config")
		}
	})

	t.Run("non-zero values override", func(t *testing.T) {
		t.Parallel()

		retries := 0
		f := &File{
			Endpoint:          "https://mirror.example/readBulletion",
			Headers:           map[string]string{"User-Agent": "custom", "X-Extra": "1"},
			Spacing:           Duration{2 * time.Second},
			Timeout:           Duration{10 * time.Second},
			Retries:           &retries,
			PageSize:          50,
			Proxy:             "127.0.0.1:1080",
			OutputDir:         "out",
			ContinueOnFailure: true,
		}

		cfg := NewConfig()
		f.Apply(cfg)

		if cfg.Endpoint != f.Endpoint {
			t.Errorf("Endpoint = %q", cfg.Endpoint)
		}
		if cfg.Headers["User-Agent"] != "custom" || cfg.Headers["X-Extra"] != "1" {
			t.Errorf("headers not merged: %v", cfg.Headers)
		}
		if cfg.Headers["Accept"] == "" {
			t.Error("default headers should survive the merge")
		}
		if cfg.RequestSpacing != 2*time.Second || cfg.Timeout != 10*time.Second {
			t.Errorf("durations not applied: %v %v", cfg.RequestSpacing, cfg.Timeout)
		}
		if cfg.MaxRetries != 0 {
			t.Errorf("explicit zero retries should apply, got %d", cfg.MaxRetries)
		}
		if cfg.PageSize != 50 || cfg.ProxyAddress != "127.0.0.1:1080" || cfg.OutputDir != "out" {
			t.Errorf("unexpected config %+v", cfg)
		}
		if !cfg.ContinueOnPageFailure {
			t.Error("expected ContinueOnPageFailure")
		}
	})
}

// TestLoadConfigFile tests YAML loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads all supported keys", func(t *testing.T) {
		t.Parallel()

		content := `
endpoint: https://web.pcc.gov.tw/prkms/tender/common/bulletion/readBulletion
headers:
  Accept-Language: zh-TW,zh;q=0.9
spacing: 2s
timeout: 45s
retries: 5
pageSize: 50
proxy: 127.0.0.1:9050
outputDir: data
continueOnFailure: true
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if f.Headers["Accept-Language"] != "zh-TW,zh;q=0.9" {
			t.Errorf("unexpected headers %v", f.Headers)
		}
		if f.Spacing.Duration != 2*time.Second || f.Timeout.Duration != 45*time.Second {
			t.Errorf("unexpected durations %v %v", f.Spacing, f.Timeout)
		}
		if f.Retries == nil || *f.Retries != 5 {
			t.Errorf("unexpected retries %v", f.Retries)
		}
		if f.PageSize != 50 || f.Proxy != "127.0.0.1:9050" || f.OutputDir != "data" || !f.ContinueOnFailure {
			t.Errorf("unexpected file %+v", f)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid duration is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("spacing: soon\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("headers: [unterminated\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

// TestFindConfigFile tests config file discovery.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path is returned", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("pageSize: 10\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestXDGDirs tests that XDG directories end with the app name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end with %q", name, dir, AppName)
		}
	}
}

// TestSiteSearchParams tests the fixed search form.
func TestSiteSearchParams(t *testing.T) {
	t.Parallel()

	site := NewConfig().Site()
	v := site.SearchParams("台灣電力", 88)

	if got := v.Get(ParamQuery); got != "台灣電力" {
		t.Errorf("querySentence = %q", got)
	}
	if got := v[ParamStatusType]; len(got) != 2 || got[0] != StatusTender || got[1] != StatusAward {
		t.Errorf("tenderStatusType = %v", got)
	}
	if got := v.Get(ParamSortColumn); got != DefaultSortColumn {
		t.Errorf("sortCol = %q", got)
	}
	if got := v.Get(ParamTimeRange); got != "88" {
		t.Errorf("timeRange = %q", got)
	}
	if got := v.Get(ParamPageSize); got != "100" {
		t.Errorf("pageSize = %q", got)
	}

	for _, name := range []string{"querySentence", "tenderStatusType", "sortCol", "timeRange", "pageSize"} {
		if !IsFixedParam(name) {
			t.Errorf("IsFixedParam(%q) = false", name)
		}
	}
	if IsFixedParam("d-49738-p") {
		t.Error("page selector must not be a fixed param")
	}
}
