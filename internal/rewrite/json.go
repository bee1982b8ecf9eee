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
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// jsonPathKeys are object keys whose string values are treated as URLs or paths.
var jsonPathKeys = map[string]bool{
	"url":      true,
	"path":     true,
	"src":      true,
	"href":     true,
	"endpoint": true,
}

type jsonEdit struct {
	path  string
	value string
}

// rewriteJSONFields rewrites string values of path-like keys in a JSON document.
// Bodies that are not valid JSON are returned unchanged.
func rewriteJSONFields(s string, p *Plan) string {
	if !gjson.Valid(s) {
		return s
	}

	var edits []jsonEdit
	collectJSONEdits(gjson.Parse(s), "", p, &edits)
	if len(edits) == 0 {
		return s
	}

	out := s
	for _, e := range edits {
		next, err := sjson.Set(out, e.path, e.value)
		if err != nil {
			return s
		}
		out = next
	}
	return out
}

func collectJSONEdits(node gjson.Result, prefix string, p *Plan, edits *[]jsonEdit) {
	idx := 0
	node.ForEach(func(key, value gjson.Result) bool {
		var path string
		if node.IsArray() {
			path = joinJSONPath(prefix, strconv.Itoa(idx))
			idx++
		} else {
			path = joinJSONPath(prefix, escapeJSONPathKey(key.String()))
		}

		switch {
		case value.IsObject() || value.IsArray():
			collectJSONEdits(value, path, p, edits)
		case value.Type == gjson.String && node.IsObject() && jsonPathKeys[key.String()]:
			if mapped, ok := p.Reference(value.String(), AbsoluteOnly|FormRootRelative); ok {
				*edits = append(*edits, jsonEdit{path: path, value: mapped})
			}
		}
		return true
	})
}

func joinJSONPath(prefix, part string) string {
	if prefix == "" {
		return part
	}
	return prefix + "." + part
}

// escapeJSONPathKey escapes characters that gjson/sjson treat as path syntax.
func escapeJSONPathKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
