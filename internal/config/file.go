package config

import "time"

// File represents the structure of the .tenderscan.yaml configuration file.
// Every field is optional; zero values leave the defaults untouched.
type File struct {
	// Endpoint overrides the bulletin search URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Origin overrides the site origin used for links and the Origin header.
	Origin string `yaml:"origin,omitempty"`

	// Headers are merged over the default browser header set.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Spacing is the minimum delay between requests (e.g. "1500ms").
	Spacing Duration `yaml:"spacing,omitempty"`

	// Timeout bounds a single request (e.g. "30s").
	Timeout Duration `yaml:"timeout,omitempty"`

	// Retries is the retry count for failed requests.
	Retries *int `yaml:"retries,omitempty"`

	// PageSize overrides the number of rows per page.
	PageSize int `yaml:"pageSize,omitempty"`

	// Proxy is an optional SOCKS5 proxy address.
	Proxy string `yaml:"proxy,omitempty"`

	// OutputDir is the default directory for per-year CSV files.
	OutputDir string `yaml:"outputDir,omitempty"`

	// ContinueOnFailure keeps paging after a page fails to parse.
	ContinueOnFailure bool `yaml:"continueOnFailure,omitempty"`
}

// Duration is a time.Duration that decodes from YAML strings such as "1.5s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Apply merges the file settings into cfg. Only non-zero values override.
func (f *File) Apply(cfg *Config) {
	if f.Endpoint != "" {
		cfg.Endpoint = f.Endpoint
	}
	if f.Origin != "" {
		cfg.Origin = f.Origin
	}
	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
	}
	if f.Spacing.Duration > 0 {
		cfg.RequestSpacing = f.Spacing.Duration
	}
	if f.Timeout.Duration > 0 {
		cfg.Timeout = f.Timeout.Duration
	}
	if f.Retries != nil {
		cfg.MaxRetries = *f.Retries
	}
	if f.PageSize > 0 {
		cfg.PageSize = f.PageSize
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.ContinueOnFailure {
		cfg.ContinueOnPageFailure = true
	}
}
