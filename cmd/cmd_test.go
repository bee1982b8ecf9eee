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

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/dominikschlosser/prefixgate/internal/input"
	"github.com/dominikschlosser/prefixgate/internal/route"
)

func TestResolvePath(t *testing.T) {
	table, err := route.NewTable(config.Default().Routes)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, path, target, prefix, mode string
	}{
		{"prefix", "/hexo/a/b.css?v=1", "https://hexo-gally.vercel.app/a/b.css?v=1", "/hexo", "prefix"},
		{"longer prefix wins", "/hexo2/", "https://hexo-987.pages.dev/", "/hexo2", "prefix"},
		{"base path", "/discord/v9/users", "https://discord.com/api/v9/users", "/discord", "prefix"},
		{"generic", "/proxy/https%3A%2F%2Fexample.com%2Fa", "https://example.com/a", route.GenericMarker, "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolvePath(table, tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Target != tt.target || res.Prefix != tt.prefix || res.Mode != tt.mode {
				t.Errorf("got %+v", res)
			}
		})
	}

	if _, err := resolvePath(table, "/hexology"); !errors.Is(err, route.ErrNoRuleMatched) {
		t.Errorf("expected ErrNoRuleMatched, got %v", err)
	}
	if _, err := resolvePath(table, "/proxy/"); !errors.Is(err, route.ErrMissingTarget) {
		t.Errorf("expected ErrMissingTarget, got %v", err)
	}
}

func TestPrintResolution(t *testing.T) {
	var buf bytes.Buffer
	printResolution(&buf, &resolution{Path: "/hexo/", Target: "https://hexo-gally.vercel.app/", Prefix: "/hexo", Mode: "prefix"})
	if !strings.Contains(buf.String(), "https://hexo-gally.vercel.app/") {
		t.Errorf("output: %s", buf.String())
	}
}

func TestRewriteDocument(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name     string
		doc      *input.Document
		target   string
		typeName string
		mode     string
		category string
		want     string
	}{
		{
			name:     "stylesheet under prefix",
			doc:      &input.Document{Body: []byte(`.a{background:url(../img/x.png)}`), ContentType: "text/css"},
			target:   "https://hexo-gally.vercel.app/assets/css/site.css",
			mode:     "prefix",
			category: "css",
			want:     `.a{background:url(https://edge.example/hexo/assets/img/x.png)}`,
		},
		{
			name:     "unrouted host uses generic mode",
			doc:      &input.Document{Body: []byte(`fetch("https://example.com/api")`)},
			target:   "https://example.com/app.js",
			mode:     "generic",
			category: "js",
			want:     `fetch("https://edge.example/proxy/https%3A%2F%2Fexample.com%2Fapi")`,
		},
		{
			name:     "forced type",
			doc:      &input.Document{Body: []byte(`{"url":"/v9/gateway"}`)},
			target:   "https://discord.com/api/v9/data",
			typeName: "json",
			mode:     "prefix",
			category: "json",
			want:     `{"url":"https://edge.example/proxy/https%3A%2F%2Fdiscord.com%2Fv9%2Fgateway"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := rewriteDocument(cfg, tt.doc, tt.target, "https://edge.example", tt.typeName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rep.Mode != tt.mode || rep.Category != tt.category {
				t.Errorf("mode/category: got %s/%s", rep.Mode, rep.Category)
			}
			if rep.Body != tt.want {
				t.Errorf("body:\ngot  %s\nwant %s", rep.Body, tt.want)
			}
		})
	}
}

func TestRewriteDocumentErrors(t *testing.T) {
	cfg := config.Default()
	doc := &input.Document{Body: []byte("x")}

	if _, err := rewriteDocument(cfg, doc, "", "https://edge.example", ""); err == nil {
		t.Error("expected error without target")
	}
	if _, err := rewriteDocument(cfg, doc, "ftp://x", "https://edge.example", ""); !errors.Is(err, route.ErrInvalidTargetURL) {
		t.Errorf("expected ErrInvalidTargetURL, got %v", err)
	}
	if _, err := rewriteDocument(cfg, doc, "https://x.com/", "https://edge.example", "pdf"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDefaultOrigin(t *testing.T) {
	tests := []struct {
		origin, listen, want string
	}{
		{"https://edge.example/", ":8080", "https://edge.example"},
		{"", ":8080", "http://localhost:8080"},
		{"", "0.0.0.0:9000", "http://0.0.0.0:9000"},
	}
	for _, tt := range tests {
		cfg := &config.Config{PublicOrigin: tt.origin, Listen: tt.listen}
		if got := defaultOrigin(cfg); got != tt.want {
			t.Errorf("defaultOrigin(%q, %q) = %q, want %q", tt.origin, tt.listen, got, tt.want)
		}
	}
}

func TestRulesReport(t *testing.T) {
	cfg := config.Default()
	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		t.Fatal(err)
	}
	report := buildRulesReport(table, cfg.Hosts)
	if len(report.Routes) != len(cfg.Routes) {
		t.Fatalf("got %d routes, want %d", len(report.Routes), len(cfg.Routes))
	}
	if report.Routes[0].Prefix != "/huggingface" {
		t.Errorf("longest prefix must come first, got %s", report.Routes[0].Prefix)
	}

	var buf bytes.Buffer
	printRulesReport(&buf, report)
	out := buf.String()
	for _, want := range []string{"/hexo2", "https://hexo-987.pages.dev", "/proxy/<url>", "*.vercel.app", "rewrite rules"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
