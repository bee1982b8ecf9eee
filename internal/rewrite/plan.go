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
	"net/url"
	"regexp"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/route"
)

// Forms is a set of URL reference shapes a pass is willing to rewrite.
type Forms uint8

const (
	FormAbsolute         Forms = 1 << iota // https://target/x
	FormProtocolRelative                   // //target/x
	FormRootRelative                       // /x
	FormRelative                           // x, ./x, ../x

	AllForms     = FormAbsolute | FormProtocolRelative | FormRootRelative | FormRelative
	AbsoluteOnly = FormAbsolute | FormProtocolRelative
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// Plan carries everything a rewrite pass needs to know about one response.
type Plan struct {
	Category       Category
	Target         *url.URL // URL the body was fetched from
	TargetDomain   string
	ProxyOrigin    string // scheme://host of the gateway as seen by the client
	ProxyBaseURL   string // ProxyOrigin + matched prefix
	TargetPathBase string // directory part of the target path
	Prefix         string
	Mode           route.Mode

	basePath string   // configured target base path, no trailing slash
	docBase  *url.URL // base for relative references; <base href> overrides Target
}

// NewPlan derives the rewrite plan for a response fetched from t, served under proxyOrigin.
func NewPlan(t *route.Target, proxyOrigin string, category Category) *Plan {
	proxyOrigin = strings.TrimRight(proxyOrigin, "/")
	p := &Plan{
		Category:     category,
		Target:       t.URL,
		TargetDomain: t.URL.Host,
		ProxyOrigin:  proxyOrigin,
		ProxyBaseURL: proxyOrigin + t.Prefix,
		Prefix:       t.Prefix,
		Mode:         t.Mode,
		docBase:      t.URL,
	}

	tp := t.URL.EscapedPath()
	p.TargetPathBase = tp[:strings.LastIndex(tp, "/")+1]
	if p.TargetPathBase == "" {
		p.TargetPathBase = "/"
	}
	if t.Base != nil {
		p.basePath = strings.TrimRight(t.Base.EscapedPath(), "/")
	}
	return p
}

// TargetOrigin returns scheme://host of the target.
func (p *Plan) TargetOrigin() string {
	return p.Target.Scheme + "://" + p.Target.Host
}

// BasePath returns the path of the configured target base URL, without a trailing slash.
func (p *Plan) BasePath() string {
	return p.basePath
}

// IsTargetHost reports whether host names the target origin's host.
func (p *Plan) IsTargetHost(host string) bool {
	return strings.EqualFold(host, p.Target.Host)
}

// IsProxied reports whether ref already points at the gateway.
func (p *Plan) IsProxied(ref string) bool {
	return ref == p.ProxyOrigin || strings.HasPrefix(ref, p.ProxyOrigin+"/")
}

// MapAbsolute translates an absolute URL on the target host into its gateway URL.
// In prefix mode paths under the configured base path keep the prefix form; any other
// path on the host, and every URL in generic mode, uses the encoded /proxy/ form.
func (p *Plan) MapAbsolute(u *url.URL) (string, bool) {
	if u == nil || !p.IsTargetHost(u.Host) {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if p.Mode == route.ModeGeneric {
		return route.GenericURL(p.ProxyOrigin, u), true
	}

	escaped := u.EscapedPath()
	if p.basePath != "" && escaped != p.basePath && !strings.HasPrefix(escaped, p.basePath+"/") {
		return route.GenericURL(p.ProxyOrigin, u), true
	}

	var b strings.Builder
	b.WriteString(p.ProxyBaseURL)
	b.WriteString(escaped[len(p.basePath):])
	if u.ForceQuery || u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String(), true
}

// Reference rewrites a single URL reference as it appears in a document. It returns
// the gateway URL and true when ref has one of the accepted forms and points at the
// target origin; otherwise ref is returned unchanged with false.
func (p *Plan) Reference(ref string, forms Forms) (string, bool) {
	v := strings.TrimSpace(ref)
	if v == "" || v[0] == '#' || p.IsProxied(v) || isTemplated(v) {
		return ref, false
	}

	var (
		abs  *url.URL
		err  error
		form Forms
	)
	lower := strings.ToLower(v)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		form = FormAbsolute
		abs, err = url.Parse(v)
	case strings.HasPrefix(v, "//"):
		form = FormProtocolRelative
		abs, err = url.Parse(p.Target.Scheme + ":" + v)
	case schemeRe.MatchString(v):
		return ref, false
	default:
		form = FormRelative
		if v[0] == '/' {
			form = FormRootRelative
		}
		var rel *url.URL
		rel, err = url.Parse(v)
		if err == nil {
			abs = p.docBase.ResolveReference(rel)
		}
	}
	if err != nil || forms&form == 0 {
		return ref, false
	}

	mapped, ok := p.MapAbsolute(abs)
	if !ok {
		return ref, false
	}
	return mapped, true
}

// isTemplated catches client-side template placeholders that only look like relative paths.
func isTemplated(v string) bool {
	return strings.Contains(v, "{{") || strings.Contains(v, "${") || strings.Contains(v, "<%")
}

// replaceSubmatches replaces every match of re in src with repl(groups).
// Unmatched optional groups are passed as empty strings.
func replaceSubmatches(re *regexp.Regexp, src string, repl func(groups []string) string) string {
	idx := re.FindAllStringSubmatchIndex(src, -1)
	if len(idx) == 0 {
		return src
	}

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	groups := make([]string, re.NumSubexp()+1)
	for _, m := range idx {
		for g := range groups {
			if m[2*g] >= 0 {
				groups[g] = src[m[2*g]:m[2*g+1]]
			} else {
				groups[g] = ""
			}
		}
		b.WriteString(src[last:m[0]])
		b.WriteString(repl(groups))
		last = m[1]
	}
	b.WriteString(src[last:])
	return b.String()
}
