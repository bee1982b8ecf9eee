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
	"strings"
	"testing"
)

func TestPatchScriptConstants(t *testing.T) {
	p := prefixPlan(t, "/discord", "https://discord.com/api", "https://discord.com/api/v9/x", CategoryHTML)
	script, err := PatchScript(p)
	if err != nil {
		t.Fatalf("PatchScript: %v", err)
	}

	want := []string{
		"<script " + PatchMarker + ">",
		`var PROXY_BASE = "https://edge.example/discord";`,
		`var PROXY_ORIGIN = "https://edge.example";`,
		`var TARGET_ORIGIN = "https://discord.com";`,
		`var TARGET_URL = "https://discord.com/api/v9/x";`,
		`var BASE_PATH = "/api";`,
		`var GENERIC = false;`,
		`var ATTRS = ["href","src",`,
		"window.fetch = function",
		"XMLHttpRequest.prototype.open = function",
		"window.WebSocket = PatchedWebSocket",
		"Element.prototype.setAttribute = function",
		"new MutationObserver(",
	}
	for _, w := range want {
		if !strings.Contains(script, w) {
			t.Errorf("patch script missing %q", w)
		}
	}
	if strings.Contains(script, "{{") {
		t.Error("template placeholders left unexpanded")
	}
	if !strings.HasSuffix(script, "</script>") {
		t.Error("patch script must end with </script>")
	}
}

func TestPatchScriptEscapesValues(t *testing.T) {
	p := hexoPlan(t, `https://hexo.example.com/a?q=</script><b>"x"`, CategoryHTML)
	script, err := PatchScript(p)
	if err != nil {
		t.Fatalf("PatchScript: %v", err)
	}
	if n := strings.Count(script, "</script>"); n != 1 {
		t.Errorf("target URL must not terminate the script element early, found %d closing tags", n)
	}
	if strings.Contains(script, `"x"`) {
		t.Error("quotes in the target URL must be escaped")
	}
}

func TestPatchScriptGeneric(t *testing.T) {
	script, err := PatchScript(genericPlan(t, "https://example.com/", CategoryHTML))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "var GENERIC = true;") || !strings.Contains(script, `var PROXY_BASE = "https://edge.example/proxy";`) {
		t.Error("generic constants not rendered")
	}
}
