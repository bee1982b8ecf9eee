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

// xmlURLRe finds bare absolute URLs in XML text nodes such as <link> or <loc>.
var xmlURLRe = regexp.MustCompile(`(>\s*)(https?://[^\s<>"']+)`)

// rewriteXMLText rewrites absolute target URLs that form the text of an element.
func rewriteXMLText(s string, p *Plan) string {
	return replaceSubmatches(xmlURLRe, s, func(g []string) string {
		mapped, ok := p.Reference(g[2], FormAbsolute)
		if !ok {
			return g[0]
		}
		return g[1] + mapped
	})
}
