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

// Package route maps inbound request paths to upstream target URLs, either through
// the static prefix table or through the generic /proxy/<url> form.
package route

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/config"
)

var (
	// ErrNoRuleMatched means the path belongs to neither the table nor the generic form.
	// It is not a failure: the caller hands the request to its fallback handler.
	ErrNoRuleMatched = errors.New("no route matches path")
	// ErrMissingTarget is returned for a bare /proxy/ path.
	ErrMissingTarget = errors.New("missing target URL")
	// ErrInvalidTargetURL is returned when the target cannot be parsed as an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid target URL")
)

// Mode tells how a target was resolved.
type Mode int

const (
	ModePrefix Mode = iota
	ModeGeneric
)

func (m Mode) String() string {
	if m == ModeGeneric {
		return "generic"
	}
	return "prefix"
}

// GenericMarker is the matched prefix reported for generic-mode targets.
const GenericMarker = "/proxy"

// Rule maps a public path prefix to an upstream base URL.
type Rule struct {
	Prefix string
	Target *url.URL
}

// Target is the per-request resolution result.
type Target struct {
	URL    *url.URL
	Prefix string
	Base   *url.URL // configured base URL; nil in generic mode
	Mode   Mode
}

// Table is the immutable prefix table. It is safe for concurrent use.
type Table struct {
	rules []Rule
}

// NewTable compiles the configured routes. Rules are ordered so that longer
// prefixes are tried first, ties broken by descending lexicographic order.
func NewTable(routes map[string]string) (*Table, error) {
	rules := make([]Rule, 0, len(routes))
	for prefix, target := range routes {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", prefix, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("route %s: target %q is not an absolute http(s) URL", prefix, target)
		}
		rules = append(rules, Rule{Prefix: prefix, Target: u})
	}

	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Prefix > rules[j].Prefix
	})

	return &Table{rules: rules}, nil
}

// Rules returns the rules in match order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns the most specific rule whose prefix equals path or is followed by "/" in path.
func (t *Table) Match(path string) (Rule, bool) {
	for _, r := range t.rules {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Rule{}, false
}

// Resolve turns an inbound escaped path and raw query into an upstream target.
func (t *Table) Resolve(escapedPath, rawQuery string) (*Target, error) {
	if strings.HasPrefix(escapedPath, config.GenericPrefix) {
		return ResolveGeneric(escapedPath, rawQuery)
	}

	rule, ok := t.Match(escapedPath)
	if !ok {
		return nil, ErrNoRuleMatched
	}
	return Build(rule, escapedPath[len(rule.Prefix):], rawQuery)
}

// Build joins the rule's base URL with the remaining path and the inbound query.
func Build(rule Rule, remaining, rawQuery string) (*Target, error) {
	base := strings.TrimRight(rule.Target.String(), "/")
	u, err := url.Parse(base + remaining)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrInvalidTargetURL, u)
	}
	u.RawQuery = rawQuery
	u.Fragment = ""

	return &Target{URL: u, Prefix: rule.Prefix, Base: rule.Target, Mode: ModePrefix}, nil
}

// Locate returns the target under which the upstream URL u is reachable: the most
// specific rule whose base URL contains u, or generic mode when no rule does.
func (t *Table) Locate(u *url.URL) *Target {
	escaped := u.EscapedPath()
	for _, r := range t.rules {
		if !strings.EqualFold(r.Target.Scheme, u.Scheme) || !strings.EqualFold(r.Target.Host, u.Host) {
			continue
		}
		base := strings.TrimRight(r.Target.EscapedPath(), "/")
		if base != "" && escaped != base && !strings.HasPrefix(escaped, base+"/") {
			continue
		}
		if target, err := Build(r, escaped[len(base):], u.RawQuery); err == nil {
			return target
		}
	}

	clean := *u
	clean.Fragment = ""
	return &Target{URL: &clean, Prefix: GenericMarker, Mode: ModeGeneric}
}
