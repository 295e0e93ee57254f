package config

import "strings"

// TargetConfig holds settings for a single autocomplete API.
// Zero values mean "not set" and leave the global value in place.
type TargetConfig struct {
	// Headers are custom HTTP headers to include in every request,
	// typically an API key.
	Headers map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty"`

	// Cookie is a raw Cookie header value.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty" toml:"cookie,omitempty"`

	// MaxResults overrides the page-size cap.
	MaxResults int `yaml:"maxResults,omitempty" toml:"max_results,omitempty"`

	// Charlist overrides the expansion alphabet.
	Charlist string `yaml:"charlist,omitempty" toml:"charlist,omitempty"`

	// Version overrides the API version tag ("v1", "v2", "v3").
	Version string `yaml:"version,omitempty" toml:"version,omitempty"`

	// Proxy routes this target's traffic through a proxy.
	Proxy string `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
}

// File represents the structure of the acprobe configuration file.
type File struct {
	// BaseURL is the target used when --base-url is not given.
	BaseURL string `yaml:"baseURL,omitempty" toml:"base_url,omitempty"`

	// Defaults contains settings applied to every target unless
	// overridden in the target-specific configuration.
	Defaults TargetConfig `yaml:"defaults,omitempty" toml:"defaults,omitempty"`

	// Targets maps API base URLs to their specific configurations.
	// Keys are compared without a trailing slash.
	Targets map[string]TargetConfig `yaml:"targets,omitempty" toml:"targets,omitempty"`
}

// GetTargetConfig returns the configuration for a specific base URL.
// It merges the target-specific configuration with defaults.
func (cf *File) GetTargetConfig(baseURL string) TargetConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	tc, ok := cf.lookup(baseURL)
	if !ok {
		return result
	}

	if tc.Cookie != "" {
		result.Cookie = tc.Cookie
	}
	if tc.MaxResults != 0 {
		result.MaxResults = tc.MaxResults
	}
	if tc.Charlist != "" {
		result.Charlist = tc.Charlist
	}
	if tc.Version != "" {
		result.Version = tc.Version
	}
	if tc.Proxy != "" {
		result.Proxy = tc.Proxy
	}
	if len(tc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(tc.Headers))
		}
		for k, v := range tc.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

func (cf *File) lookup(baseURL string) (TargetConfig, bool) {
	want := NormalizeBaseURL(baseURL)
	for k, tc := range cf.Targets {
		if NormalizeBaseURL(k) == want {
			return tc, true
		}
	}
	return TargetConfig{}, false
}

// NormalizeBaseURL trims whitespace and trailing slashes so that
// "http://host:8000/" and "http://host:8000" name the same API.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
