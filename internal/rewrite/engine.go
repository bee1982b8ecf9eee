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

// Package rewrite translates target-origin URL references in HTML, CSS, JavaScript
// and JSON bodies into references that route back through the gateway.
package rewrite

import (
	"errors"
	"fmt"
)

// ErrRewriteFailure marks an outcome whose passes failed; the body is the original.
var ErrRewriteFailure = errors.New("rewrite failed")

// Skip reasons reported in Outcome.Skipped.
const (
	SkipOpaque       = "opaque"
	SkipFileTooLarge = "file-too-large"
)

// Pass is a single rewrite step. Passes are pure functions of the text and the plan.
type Pass func(s string, p *Plan) string

// Outcome is the result of rewriting one body.
type Outcome struct {
	Body    []byte
	Script  string // patch script injected into HTML
	Skipped string // non-empty when no pass ran
	Err     error  // non-nil when a pass failed; Body is then the original
}

// Engine dispatches bodies to the passes of their category. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	rules    *RuleSet
	maxBytes int64
	passes   map[Category][]Pass
}

// NewEngine creates an engine with the given special rules and size ceiling.
func NewEngine(rules *RuleSet, maxBytes int64) *Engine {
	return &Engine{
		rules:    rules,
		maxBytes: maxBytes,
		passes: map[Category][]Pass{
			CategoryHTML: {
				rewriteHTMLAttributes,
				rewriteSrcset,
				stripIntegrity,
				rewriteInlineStyles,
				rewriteStyleBlocks,
				rewriteBaseTag,
				rewriteInlineScripts,
			},
			CategoryCSS: {
				rewriteCSSURLs,
				rewriteCSSImports,
			},
			CategoryJS: {
				rewriteJSAbsolute,
				rewriteJSAssetPaths,
				rewriteJSKeyedPaths,
			},
			CategoryJSON: {
				rewriteJSONFields,
				rewriteJSAbsolute,
				rewriteJSAssetPaths,
			},
			CategoryXML: {
				rewriteHTMLAttributes,
				rewriteXMLText,
			},
		},
	}
}

// MaxBytes returns the size ceiling above which bodies are not rewritten.
func (e *Engine) MaxBytes() int64 {
	return e.maxBytes
}

// Rewrite runs the passes for p.Category over body. A failing pass never yields a
// partial body: the outcome then carries the original bytes and a non-nil Err.
func (e *Engine) Rewrite(body []byte, p *Plan) (out Outcome) {
	passes, ok := e.passes[p.Category]
	if !ok {
		return Outcome{Body: body, Skipped: SkipOpaque}
	}
	if e.maxBytes > 0 && int64(len(body)) > e.maxBytes {
		return Outcome{Body: body, Skipped: SkipFileTooLarge}
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Body: body, Err: fmt.Errorf("%w: %s pass: %v", ErrRewriteFailure, p.Category, r)}
		}
	}()

	s := string(body)
	if p.Category == CategoryHTML {
		p.docBase = documentBase(s, p)
	}
	for _, pass := range passes {
		s = pass(s, p)
	}
	for _, rule := range e.rules.For(p.TargetDomain) {
		s = rule.Apply(s, p)
	}

	var script string
	if p.Category == CategoryHTML {
		var err error
		script, err = PatchScript(p)
		if err != nil {
			return Outcome{Body: body, Err: fmt.Errorf("%w: patch script: %v", ErrRewriteFailure, err)}
		}
		s = injectScript(s, script)
	}

	return Outcome{Body: []byte(s), Script: script}
}
