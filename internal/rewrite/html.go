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
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/route"
	"golang.org/x/net/html"
)

// URLAttributes are the element attributes whose values are URL references.
var URLAttributes = []string{
	"href", "src", "action", "formaction", "poster", "cite", "background",
	"data-src", "data-href", "data-url", "data-background", "longdesc", "manifest",
}

var (
	htmlAttrRe = regexp.MustCompile(`(?i)(\s)(` + strings.Join(URLAttributes, "|") + `|content)(\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	srcsetRe   = regexp.MustCompile(`(?i)(\s)(srcset|imagesrcset)(\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	styleRe    = regexp.MustCompile(`(?i)(\s)(style)(\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	integrity  = regexp.MustCompile(`(?i)\s+integrity\s*=\s*(?:"[^"]*"|'[^']*')`)
	baseTagRe  = regexp.MustCompile(`(?i)<base\b[^>]*>`)
	baseHrefRe = regexp.MustCompile(`(?i)\shref\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	bodyEndRe  = regexp.MustCompile(`(?i)</body\s*>`)

	scriptTypes = map[string]bool{
		"": true, "text/javascript": true, "application/javascript": true, "module": true,
		"application/json": true, "application/ld+json": true, "importmap": true,
	}
)

// quotedAttr unpacks the shared (lead)(name)(eq)("dq"|'sq') submatch layout.
func quotedAttr(g []string) (name, quote, value string) {
	if strings.HasPrefix(g[0][len(g[1])+len(g[2])+len(g[3]):], "'") {
		return g[2], "'", g[5]
	}
	return g[2], `"`, g[4]
}

// rewriteHTMLAttributes rewrites URL-bearing attributes in all four reference forms.
// content= is only rewritten for absolute URLs since it mostly carries non-URL metadata.
func rewriteHTMLAttributes(s string, p *Plan) string {
	return rewriteStartTags(s, func(tag string) string {
		return replaceSubmatches(htmlAttrRe, tag, func(g []string) string {
			name, quote, value := quotedAttr(g)
			forms := AllForms
			if strings.EqualFold(name, "content") {
				forms = AbsoluteOnly
			}
			mapped, ok := p.Reference(unescapeAttr(value), forms)
			if !ok {
				return g[0]
			}
			return g[1] + name + g[3] + quote + quoteSafe(mapped, quote) + quote
		})
	})
}


// quoteSafe escapes the attribute's own quote character inside value.
func quoteSafe(value, quote string) string {
	if quote == "'" {
		return strings.ReplaceAll(value, "'", "&#39;")
	}
	return strings.ReplaceAll(value, `"`, "&quot;")
}

// unescapeAttr decodes character references so that "&amp;" in a query string is
// not carried into the encoded generic form.
func unescapeAttr(v string) string {
	if !strings.Contains(v, "&") {
		return v
	}
	return html.UnescapeString(v)
}

// rewriteSrcset rewrites each candidate URL of srcset/imagesrcset, keeping descriptors.
func rewriteSrcset(s string, p *Plan) string {
	return rewriteStartTags(s, func(tag string) string {
		return replaceSubmatches(srcsetRe, tag, func(g []string) string {
			name, quote, value := quotedAttr(g)
			candidates := strings.Split(value, ",")
			changed := false
			for i, c := range candidates {
				fields := strings.Fields(c)
				if len(fields) == 0 {
					continue
				}
				if mapped, ok := p.Reference(unescapeAttr(fields[0]), AllForms); ok {
					fields[0] = quoteSafe(mapped, quote)
					changed = true
				}
				candidates[i] = strings.Join(fields, " ")
			}
			if !changed {
				return g[0]
			}
			return g[1] + name + g[3] + quote + strings.Join(candidates, ", ") + quote
		})
	})
}

// rewriteInlineStyles rewrites url(...) inside style attributes.
func rewriteInlineStyles(s string, p *Plan) string {
	return rewriteStartTags(s, func(tag string) string {
		return replaceSubmatches(styleRe, tag, func(g []string) string {
			name, quote, value := quotedAttr(g)
			out := rewriteCSSURLs(value, p)
			if out == value {
				return g[0]
			}
			return g[1] + name + g[3] + quote + out + quote
		})
	})
}

// rewriteStyleBlocks runs the stylesheet passes over <style> element contents.
func rewriteStyleBlocks(s string, p *Plan) string {
	return rewriteRawText(s, func(tag string, _ map[string]string) bool {
		return tag == "style"
	}, func(text string) string {
		return rewriteCSSImports(rewriteCSSURLs(text, p), p)
	})
}

// rewriteInlineScripts runs the script literal passes over inline <script> contents.
func rewriteInlineScripts(s string, p *Plan) string {
	return rewriteRawText(s, func(tag string, attrs map[string]string) bool {
		if tag != "script" {
			return false
		}
		if _, ok := attrs["src"]; ok {
			return false
		}
		return scriptTypes[strings.ToLower(strings.TrimSpace(attrs["type"]))]
	}, func(text string) string {
		text = rewriteJSAbsolute(text, p)
		text = rewriteJSAssetPaths(text, p)
		return rewriteJSKeyedPaths(text, p)
	})
}

// stripIntegrity drops subresource integrity hashes; rewritten assets no longer match them.
func stripIntegrity(s string, _ *Plan) string {
	return rewriteStartTags(s, func(tag string) string {
		return integrity.ReplaceAllString(tag, "")
	})
}

// rewriteBaseTag points a <base href> on the target host at the gateway. In generic
// mode such a tag is dropped, since an encoded /proxy/ URL cannot serve as a base for
// relative resolution. A base on a foreign host is kept: references resolved against
// it were left alone and must keep resolving there.
func rewriteBaseTag(s string, p *Plan) string {
	return rewriteStartTags(s, func(tag string) string {
		if !baseTagRe.MatchString(tag) {
			return tag
		}
		m := baseHrefRe.FindStringSubmatchIndex(tag)
		if m == nil {
			return tag
		}
		quote, vs, ve := `"`, m[2], m[3]
		if vs < 0 {
			quote, vs, ve = "'", m[4], m[5]
		}
		value := strings.TrimSpace(unescapeAttr(tag[vs:ve]))
		if value == "" || p.IsProxied(value) {
			return tag
		}
		// Resolved against the target: the base itself defines the document base.
		ref, err := url.Parse(value)
		if err != nil {
			return tag
		}
		mapped, ok := p.MapAbsolute(p.Target.ResolveReference(ref))
		if !ok {
			return tag
		}
		if p.Mode == route.ModeGeneric {
			return ""
		}
		return tag[:m[0]] + " href=" + quote + quoteSafe(mapped, quote) + quote + tag[m[1]:]
	})
}

// documentBase returns the URL relative references in an HTML document resolve against.
func documentBase(s string, p *Plan) *url.URL {
	href := strings.TrimSpace(baseHref(s))
	if href == "" {
		return p.Target
	}
	ref, err := url.Parse(href)
	if err != nil {
		return p.Target
	}
	return p.Target.ResolveReference(ref)
}

// baseHref returns the href of the first <base> element that carries one.
func baseHref(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "base" {
				continue
			}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "href" {
					return string(v)
				}
			}
		}
	}
}

// injectScript inserts script before the last </body>, or appends it when there is none.
func injectScript(s, script string) string {
	locs := bodyEndRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s + script
	}
	at := locs[len(locs)-1][0]
	return s[:at] + script + s[at:]
}

// rewriteRawText applies fn to the raw text of elements selected by match, leaving
// every other byte of the document untouched.
func rewriteRawText(s string, match func(tag string, attrs map[string]string) bool, fn func(string) string) string {
	active := false
	return mapTokens(s, func(z *html.Tokenizer, tt html.TokenType, raw string) string {
		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			attrs := map[string]string{}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[string(k)] = string(v)
			}
			active = match(string(name), attrs)
		case html.TextToken:
			if active {
				return fn(raw)
			}
		case html.EndTagToken:
			active = false
		}
		return raw
	})
}

// rewriteStartTags applies fn to the markup of every start tag. Text, comments and
// the contents of raw-text elements such as <script> pass through unchanged.
func rewriteStartTags(s string, fn func(tag string) string) string {
	return mapTokens(s, func(_ *html.Tokenizer, tt html.TokenType, raw string) string {
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			return fn(raw)
		}
		return raw
	})
}

// mapTokens rebuilds s token by token from what fn returns for each token's raw
// bytes. s is returned unchanged when it cannot be tokenized.
func mapTokens(s string, fn func(z *html.Tokenizer, tt html.TokenType, raw string) string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	b.Grow(len(s))

	consumed := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return s
			}
			break
		}
		// TagName and TagAttr lower-case the buffer in place, so copy first.
		raw := string(z.Raw())
		consumed += len(raw)
		b.WriteString(fn(z, tt, raw))
	}
	if consumed < len(s) {
		b.WriteString(s[consumed:])
	}
	return b.String()
}
