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
	"testing"

	"github.com/tidwall/gjson"
)

func TestRewriteJSONFields(t *testing.T) {
	p := hexoPlan(t, "https://hexo.example.com/api/list", CategoryJSON)
	in := `{
  "data": {"items": [{"url": "/a/b", "title": "/x"}, {"href": "https://hexo.example.com/c"}]},
  "path": "/p",
  "a.b": {"src": "/x.png"},
  "external": {"url": "https://cdn.other.com/y"},
  "count": 2
}`

	out := rewriteJSONFields(in, p)

	tests := []struct{ path, want string }{
		{"data.items.0.url", "https://edge.example/hexo/a/b"},
		{"data.items.0.title", "/x"},
		{"data.items.1.href", "https://edge.example/hexo/c"},
		{"path", "https://edge.example/hexo/p"},
		{`a\.b.src`, "https://edge.example/hexo/x.png"},
		{"external.url", "https://cdn.other.com/y"},
		{"count", "2"},
	}
	for _, tt := range tests {
		if got := gjson.Get(out, tt.path).String(); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.path, got, tt.want)
		}
	}
	if !gjson.Valid(out) {
		t.Errorf("output is not valid JSON: %s", out)
	}
}

func TestEngineRewritesJSONAssetPaths(t *testing.T) {
	p := hexoPlan(t, "https://hexo.example.com/api/post", CategoryJSON)
	e := NewEngine(nil, 1<<20)

	out := string(e.Rewrite([]byte(`{"image": "/img/a.png", "cover": "/covers/b.jpg", "title": "/x", "url": "/p"}`), p).Body)
	tests := []struct{ path, want string }{
		{"image", "https://edge.example/hexo/img/a.png"},
		{"cover", "https://edge.example/hexo/covers/b.jpg"},
		{"title", "/x"},
		{"url", "https://edge.example/hexo/p"},
	}
	for _, tt := range tests {
		if got := gjson.Get(out, tt.path).String(); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.path, got, tt.want)
		}
	}

	jsonp := `callback({"image":"/img/a.png"})`
	want := `callback({"image":"https://edge.example/hexo/img/a.png"})`
	if got := string(e.Rewrite([]byte(jsonp), p).Body); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestRewriteJSONFieldsInvalid(t *testing.T) {
	p := hexoPlan(t, "https://hexo.example.com/api", CategoryJSON)
	in := `callback({"url":"/a"})`
	if got := rewriteJSONFields(in, p); got != in {
		t.Errorf("expected unchanged, got %s", got)
	}
}

func TestRewriteJSONNoEdits(t *testing.T) {
	p := hexoPlan(t, "https://hexo.example.com/api", CategoryJSON)
	in := `{"name":  "x",   "list": [1, 2]}`
	if got := rewriteJSONFields(in, p); got != in {
		t.Errorf("formatting must be preserved when nothing changes, got %s", got)
	}
}

func TestEscapeJSONPathKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"url", "url"},
		{"a.b", `a\.b`},
		{"x*y?", `x\*y\?`},
	}
	for _, tt := range tests {
		if got := escapeJSONPathKey(tt.in); got != tt.want {
			t.Errorf("escapeJSONPathKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
