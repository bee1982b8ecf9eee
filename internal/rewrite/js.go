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
	"regexp"
	"strings"
)

const assetExtensions = `js|mjs|cjs|css|json|map|png|jpe?g|gif|svg|webp|avif|ico|bmp|woff2?|ttf|otf|eot|mp3|mp4|webm|ogg|wav|m3u8|wasm|html?|xml|txt|pdf|webmanifest`

var (
	// A quoted absolute or protocol-relative URL. The literal ends at a quote or, inside a
	// template literal, at the first ${ so the interpolated tail is kept verbatim.
	jsAbsoluteRe = regexp.MustCompile("([\"'`])((?:https?:)?//[^\\s\"'`<>\\\\]*?)([\"'`]|\\$\\{)")

	// Same, with JSON-style escaped slashes: "https:\/\/host\/x".
	jsEscapedAbsoluteRe = regexp.MustCompile(`(["'])((?:https?:)?\\/\\/[^\s"'<>]*?)(["'])`)

	// A quoted root-relative path that ends in a known asset extension.
	jsAssetPathRe = regexp.MustCompile("([\"'`])(/[A-Za-z0-9_\\-.~%@+!,;=:/]*\\.(?:" + assetExtensions + ")(?:\\?[^\"'`\\s<>]*)?)([\"'`])")

	// A root-relative string assigned to a well-known path-like object key.
	jsKeyedPathRe = regexp.MustCompile("(^|[^\\w$.])([\"']?)(url|src|href|endpoint)([\"']?)(\\s*:\\s*)([\"'`])(/[^\"'`\\s<>]*)([\"'`])")
)

// rewriteJSAbsolute rewrites quoted absolute and protocol-relative URLs pointing at the target.
func rewriteJSAbsolute(s string, p *Plan) string {
	s = replaceSubmatches(jsAbsoluteRe, s, func(g []string) string {
		open, ref, end := g[1], g[2], g[3]
		if end == "${" {
			if open != "`" {
				return g[0]
			}
		} else if end != open {
			return g[0]
		}
		mapped, ok := p.Reference(ref, AbsoluteOnly)
		if !ok {
			return g[0]
		}
		return open + mapped + end
	})

	return replaceSubmatches(jsEscapedAbsoluteRe, s, func(g []string) string {
		if g[1] != g[3] {
			return g[0]
		}
		ref := strings.ReplaceAll(g[2], `\/`, "/")
		mapped, ok := p.Reference(ref, AbsoluteOnly)
		if !ok {
			return g[0]
		}
		return g[1] + strings.ReplaceAll(mapped, "/", `\/`) + g[3]
	})
}

// rewriteJSAssetPaths rewrites quoted root-relative paths that look like static assets.
// Arbitrary quoted strings are never touched.
func rewriteJSAssetPaths(s string, p *Plan) string {
	return replaceSubmatches(jsAssetPathRe, s, func(g []string) string {
		if g[1] != g[3] || strings.HasPrefix(g[2], "//") {
			return g[0]
		}
		mapped, ok := p.Reference(g[2], FormRootRelative)
		if !ok {
			return g[0]
		}
		return g[1] + mapped + g[3]
	})
}

// rewriteJSKeyedPaths rewrites root-relative values of url/src/href/endpoint keys.
func rewriteJSKeyedPaths(s string, p *Plan) string {
	return replaceSubmatches(jsKeyedPathRe, s, func(g []string) string {
		if g[2] != g[4] || g[6] != g[8] || strings.HasPrefix(g[7], "//") {
			return g[0]
		}
		mapped, ok := p.Reference(g[7], FormRootRelative)
		if !ok {
			return g[0]
		}
		return g[1] + g[2] + g[3] + g[4] + g[5] + g[6] + mapped + g[8]
	})
}
