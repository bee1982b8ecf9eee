// Copyright 2026 Dominik Schlosser
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GenericPrefix is the path prefix of the generic proxy form. Routes may not live under it.
const GenericPrefix = "/proxy/"

// Config is the gateway configuration. It is read once at startup and never mutated afterwards.
type Config struct {
	Listen       string            `yaml:"listen"`
	PublicOrigin string            `yaml:"public_origin"`
	Routes       map[string]string `yaml:"routes"`
	Hosts        []HostProfile     `yaml:"hosts"`
	Limits       Limits            `yaml:"limits"`
	Log          Log               `yaml:"log"`
}

// Limits bounds the work done per request.
type Limits struct {
	MaxRewriteBytes  int64         `yaml:"max_rewrite_bytes"`
	FirstByteTimeout time.Duration `yaml:"first_byte_timeout"`
	StaticMaxAge     int           `yaml:"static_max_age"`
}

// Log selects the log level and sinks. Writer entries are "console" and "file".
type Log struct {
	Level  string   `yaml:"level"`
	Writer []string `yaml:"writer"`
	File   string   `yaml:"file"`
}

// HostProfile carries per-target-host behaviour: outbound header overrides,
// cookie pass-through and extra rewrite rules.
type HostProfile struct {
	Match       string            `yaml:"match" json:"match"`
	Headers     map[string]string `yaml:"headers" json:"headers,omitempty"`
	KeepCookies bool              `yaml:"keep_cookies" json:"keepCookies,omitempty"`
	Rules       []RuleSpec        `yaml:"rules" json:"rules,omitempty"`
}

// RuleSpec is a regular expression substitution applied after the generic rewrite passes.
// Replace may reference capture groups ($1) and the placeholders {proxy}, {origin} and {target}.
type RuleSpec struct {
	Pattern string   `yaml:"pattern" json:"pattern"`
	Replace string   `yaml:"replace" json:"replace"`
	Types   []string `yaml:"types" json:"types,omitempty"`
}

// RuleTypes lists the content categories a RuleSpec may be restricted to.
var RuleTypes = map[string]bool{"html": true, "css": true, "js": true, "json": true}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Routes: map[string]string{
			"/discord":     "https://discord.com/api",
			"/telegram":    "https://api.telegram.org",
			"/openai":      "https://api.openai.com",
			"/claude":      "https://api.anthropic.com",
			"/gemini":      "https://generativelanguage.googleapis.com",
			"/meta":        "https://www.meta.ai/api",
			"/groq":        "https://api.groq.com/openai",
			"/xai":         "https://api.x.ai",
			"/cohere":      "https://api.cohere.ai",
			"/huggingface": "https://api-inference.huggingface.co",
			"/together":    "https://api.together.xyz",
			"/novita":      "https://api.novita.ai",
			"/portkey":     "https://api.portkey.ai",
			"/fireworks":   "https://api.fireworks.ai",
			"/openrouter":  "https://openrouter.ai/api",
			"/hexo":        "https://hexo-gally.vercel.app",
			"/hexo2":       "https://hexo-987.pages.dev",
			"/halo":        "https://blog.gally.dpdns.org",
			"/kuma":        "https://kuma.gally.dpdns.org",
			"/hf":          "https://huggingface.co",
			"/tv":          "https://tv.gally.ddns-ip.net",
			"/news":        "https://newsnow-ahm.pages.dev",
		},
		Hosts: []HostProfile{
			{
				Match: "*.vercel.app",
				Rules: []RuleSpec{
					{Pattern: `(["'])/_next/`, Replace: `${1}{proxy}/_next/`, Types: []string{"html", "js"}},
				},
			},
			{
				Match: "newsnow-ahm.pages.dev",
				Rules: []RuleSpec{
					{Pattern: `(["'\x60])/api/`, Replace: `${1}{proxy}/api/`, Types: []string{"html", "js"}},
				},
			},
			{
				Match: "kuma.gally.dpdns.org",
				Rules: []RuleSpec{
					{Pattern: `(["'])/(socket\.io|upload|api)/`, Replace: `${1}{proxy}/$2/`, Types: []string{"html", "js"}},
				},
			},
			{
				Match: "huggingface.co",
				Headers: map[string]string{
					"User-Agent":     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
					"Sec-Fetch-Mode": "navigate",
					"Sec-Fetch-Site": "none",
					"Sec-Fetch-Dest": "document",
				},
			},
			{
				Match:       "www.meta.ai",
				KeepCookies: true,
				Headers: map[string]string{
					"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				},
			},
		},
		Limits: Limits{
			MaxRewriteBytes:  5 << 20,
			FirstByteTimeout: 30 * time.Second,
			StaticMaxAge:     86400,
		},
		Log: Log{
			Level:  "info",
			Writer: []string{"console"},
			File:   "prefixgate.log",
		},
	}
}

// Load reads a YAML file and overlays it on the defaults. An empty path yields the defaults.
// A routes section in the file replaces the built-in table instead of merging into it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := Parse(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg, keeping fields the document does not mention.
func Parse(b []byte, cfg *Config) error {
	builtinRoutes := cfg.Routes
	cfg.Routes = nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return err
	}
	if cfg.Routes == nil {
		cfg.Routes = builtinRoutes
	}
	return nil
}

// Validate checks the route table and host profiles.
func (c *Config) Validate() error {
	if len(c.Routes) == 0 {
		return fmt.Errorf("no routes configured")
	}
	for prefix, target := range c.Routes {
		if err := validateRoute(prefix, target); err != nil {
			return err
		}
	}

	if c.PublicOrigin != "" {
		u, err := url.Parse(c.PublicOrigin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return fmt.Errorf("public_origin %q must be an http(s) origin without a path", c.PublicOrigin)
		}
	}

	for i, h := range c.Hosts {
		if strings.TrimSpace(h.Match) == "" {
			return fmt.Errorf("hosts[%d]: match is required", i)
		}
		for j, r := range h.Rules {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("hosts[%d].rules[%d]: invalid pattern: %w", i, j, err)
			}
			for _, t := range r.Types {
				if !RuleTypes[t] {
					return fmt.Errorf("hosts[%d].rules[%d]: unknown type %q", i, j, t)
				}
			}
		}
	}

	// Zero disables a limit.
	if c.Limits.MaxRewriteBytes < 0 {
		return fmt.Errorf("limits.max_rewrite_bytes must not be negative")
	}
	if c.Limits.FirstByteTimeout < 0 {
		return fmt.Errorf("limits.first_byte_timeout must not be negative")
	}
	return nil
}

func validateRoute(prefix, target string) error {
	switch {
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("route %q: prefix must start with /", prefix)
	case prefix == "/":
		return fmt.Errorf("route %q: prefix must not be the root", prefix)
	case strings.HasSuffix(prefix, "/"):
		return fmt.Errorf("route %q: prefix must not end with /", prefix)
	case prefix+"/" == GenericPrefix || strings.HasPrefix(prefix, GenericPrefix):
		return fmt.Errorf("route %q: prefix collides with the generic proxy path", prefix)
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("route %q: invalid target: %w", prefix, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("route %q: target %q must be an absolute http(s) URL", prefix, target)
	}
	return nil
}

// MatchHost reports whether host matches pattern. Patterns are exact host names
// or "*.suffix" wildcards, compared case-insensitively.
func MatchHost(pattern, host string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	h := strings.ToLower(strings.TrimSpace(host))
	if p == "" || h == "" {
		return false
	}
	if strings.HasPrefix(p, "*.") {
		return strings.HasSuffix(h, p[1:])
	}
	return p == h
}

// Profile returns the first host profile matching host.
func (c *Config) Profile(host string) (HostProfile, bool) {
	for _, h := range c.Hosts {
		if MatchHost(h.Match, host) {
			return h, true
		}
	}
	return HostProfile{}, false
}
