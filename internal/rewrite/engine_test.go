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

package rewrite

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dominikschlosser/prefixgate/internal/config"
)

func TestEngineSkipsOpaque(t *testing.T) {
	body := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	p := hexoPlan(t, "https://hexo.example.com/a.png", CategoryOpaque)
	out := NewEngine(nil, 1<<20).Rewrite(body, p)
	if out.Skipped != SkipOpaque || !bytes.Equal(out.Body, body) {
		t.Errorf("got skipped=%q body=%v", out.Skipped, out.Body)
	}
}

func TestEngineSizeCeiling(t *testing.T) {
	body := []byte(`.a{background:url(/x.png)}`)
	p := hexoPlan(t, "https://hexo.example.com/a.css", CategoryCSS)

	out := NewEngine(nil, int64(len(body)-1)).Rewrite(body, p)
	if out.Skipped != SkipFileTooLarge || !bytes.Equal(out.Body, body) {
		t.Errorf("over ceiling: got skipped=%q body=%s", out.Skipped, out.Body)
	}

	out = NewEngine(nil, int64(len(body))).Rewrite(body, p)
	if out.Skipped != "" || bytes.Equal(out.Body, body) {
		t.Errorf("at ceiling: got skipped=%q body=%s", out.Skipped, out.Body)
	}
}

func TestEngineFallsBackOnPanic(t *testing.T) {
	body := []byte(`.a{background:url(/x.png)}`)
	p := hexoPlan(t, "https://hexo.example.com/a.css", CategoryCSS)

	e := NewEngine(nil, 1<<20)
	e.passes[CategoryCSS] = []Pass{
		rewriteCSSURLs,
		func(string, *Plan) string { panic("boom") },
	}

	out := e.Rewrite(body, p)
	if !errors.Is(out.Err, ErrRewriteFailure) {
		t.Fatalf("expected ErrRewriteFailure, got %v", out.Err)
	}
	if !bytes.Equal(out.Body, body) {
		t.Errorf("partial output leaked: %s", out.Body)
	}
}

func TestEngineFallsBackOnHTMLPanic(t *testing.T) {
	body := []byte(`<html><body><a href="/a">a</a><img src="/b.png"></body></html>`)
	p := hexoPlan(t, "https://hexo.example.com/index.html", CategoryHTML)

	e := NewEngine(nil, 1<<20)
	e.passes[CategoryHTML] = []Pass{
		rewriteHTMLAttributes,
		func(string, *Plan) string { panic("boom") },
		rewriteSrcset,
	}

	out := e.Rewrite(body, p)
	if !errors.Is(out.Err, ErrRewriteFailure) {
		t.Fatalf("expected ErrRewriteFailure, got %v", out.Err)
	}
	if !bytes.Equal(out.Body, body) {
		t.Errorf("partial output leaked: %s", out.Body)
	}
	if out.Script != "" || bytes.Contains(out.Body, []byte(PatchMarker)) {
		t.Error("patch script must not be injected into a fallback body")
	}
}

func TestEngineAppliesSpecialRules(t *testing.T) {
	rules, err := CompileRules([]config.HostProfile{{
		Match: "hexo.example.com",
		Rules: []config.RuleSpec{{Pattern: `"/rpc/`, Replace: `"{proxy}/rpc/`, Types: []string{"js"}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	p := hexoPlan(t, "https://hexo.example.com/app.js", CategoryJS)
	out := NewEngine(rules, 1<<20).Rewrite([]byte(`call("/rpc/list")`), p)
	if got := string(out.Body); got != `call("https://edge.example/hexo/rpc/list")` {
		t.Errorf("got %s", got)
	}
}

func TestEngineIsIdempotent(t *testing.T) {
	tests := []struct {
		category Category
		target   string
		body     string
	}{
		{CategoryCSS, "https://hexo.example.com/css/a.css", `.a{background:url(../i.png)} @import "b.css";`},
		{CategoryJS, "https://hexo.example.com/app.js", `fetch("https://hexo.example.com/x");load("/m.js");({url:"/api"})`},
		{CategoryJSON, "https://hexo.example.com/api", `{"url":"/a","next":"https://hexo.example.com/page/2"}`},
	}

	e := NewEngine(nil, 1<<20)
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			first := e.Rewrite([]byte(tt.body), hexoPlan(t, tt.target, tt.category))
			second := e.Rewrite(first.Body, hexoPlan(t, tt.target, tt.category))
			if !bytes.Equal(first.Body, second.Body) {
				t.Errorf("second pass changed output:\n%s\n%s", first.Body, second.Body)
			}
			if bytes.Equal(first.Body, []byte(tt.body)) {
				t.Error("first pass changed nothing")
			}
		})
	}
}

func TestEngineHTMLWithoutBody(t *testing.T) {
	p := hexoPlan(t, "https://hexo.example.com/", CategoryHTML)
	out := NewEngine(nil, 1<<20).Rewrite([]byte(`<p>partial`), p)
	if !strings.HasPrefix(string(out.Body), `<p>partial`) || !strings.HasSuffix(string(out.Body), "</script>") {
		t.Errorf("script must be appended: %s", out.Body)
	}
}
