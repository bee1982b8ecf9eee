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
	"fmt"
	"regexp"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/config"
)

// SpecialRule is a host-specific substitution run after the generic passes.
type SpecialRule struct {
	Pattern    *regexp.Regexp
	Replace    string
	Categories map[Category]bool // empty means every text category
}

type hostRules struct {
	match string
	rules []SpecialRule
}

// RuleSet holds the compiled special rules keyed by host pattern. It is read-only after construction.
type RuleSet struct {
	hosts []hostRules
}

// CompileRules compiles the rules of every host profile.
func CompileRules(profiles []config.HostProfile) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, h := range profiles {
		if len(h.Rules) == 0 {
			continue
		}
		hr := hostRules{match: h.Match}
		for i, spec := range h.Rules {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("host %s rule %d: %w", h.Match, i, err)
			}
			rule := SpecialRule{Pattern: re, Replace: spec.Replace, Categories: map[Category]bool{}}
			for _, t := range spec.Types {
				c, ok := ParseCategory(t)
				if !ok {
					return nil, fmt.Errorf("host %s rule %d: unknown type %q", h.Match, i, t)
				}
				rule.Categories[c] = true
			}
			hr.rules = append(hr.rules, rule)
		}
		rs.hosts = append(rs.hosts, hr)
	}
	return rs, nil
}

// For returns the rules of every profile matching host, in configuration order.
func (rs *RuleSet) For(host string) []SpecialRule {
	if rs == nil {
		return nil
	}
	var out []SpecialRule
	for _, h := range rs.hosts {
		if config.MatchHost(h.match, hostname(host)) {
			out = append(out, h.rules...)
		}
	}
	return out
}

// Apply runs rule on s if it covers the plan's category.
func (r SpecialRule) Apply(s string, p *Plan) string {
	if len(r.Categories) > 0 && !r.Categories[p.Category] {
		return s
	}
	repl := strings.NewReplacer(
		"{proxy}", p.ProxyBaseURL,
		"{origin}", p.ProxyOrigin,
		"{target}", p.TargetOrigin(),
	).Replace(r.Replace)
	return r.Pattern.ReplaceAllString(s, repl)
}

func hostname(host string) string {
	if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}
