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

import "regexp"

var (
	// url("..."), url('...'), url(&quot;...&quot;) inside HTML attributes, or bare url(...)
	cssURLRe    = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|&quot;(.*?)&quot;|([^'"()\s]*))\s*\)`)
	cssImportRe = regexp.MustCompile(`(?i)@import(\s+)(?:"([^"]*)"|'([^']*)')`)
)

// rewriteCSSURLs rewrites every url(...) reference. data: URIs and #fragments are left alone.
func rewriteCSSURLs(s string, p *Plan) string {
	return replaceSubmatches(cssURLRe, s, func(g []string) string {
		var open, end, ref string
		switch {
		case g[1] != "":
			open, end, ref = `"`, `"`, g[1]
		case g[2] != "":
			open, end, ref = `'`, `'`, g[2]
		case g[3] != "":
			open, end, ref = "&quot;", "&quot;", g[3]
		case g[4] != "":
			ref = g[4]
		default:
			return g[0]
		}
		mapped, ok := p.Reference(ref, AllForms)
		if !ok {
			return g[0]
		}
		return "url(" + open + mapped + end + ")"
	})
}

// rewriteCSSImports rewrites the string form of @import; @import url(...) is covered by rewriteCSSURLs.
func rewriteCSSImports(s string, p *Plan) string {
	return replaceSubmatches(cssImportRe, s, func(g []string) string {
		quote, ref := `"`, g[2]
		if g[3] != "" {
			quote, ref = `'`, g[3]
		}
		mapped, ok := p.Reference(ref, AllForms)
		if !ok {
			return g[0]
		}
		return "@import" + g[1] + quote + mapped + quote
	})
}
