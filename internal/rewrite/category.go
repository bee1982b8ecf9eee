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
	"mime"
	"path"
	"strings"
)

// Category selects which rewrite passes run over a response body.
type Category int

const (
	CategoryOpaque Category = iota // passed through byte-for-byte
	CategoryHTML
	CategoryCSS
	CategoryJS
	CategoryJSON
	CategoryXML
)

var categoryNames = map[Category]string{
	CategoryOpaque: "opaque",
	CategoryHTML:   "html",
	CategoryCSS:    "css",
	CategoryJS:     "js",
	CategoryJSON:   "json",
	CategoryXML:    "xml",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "opaque"
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, bool) {
	for c, n := range categoryNames {
		if n == strings.ToLower(s) {
			return c, true
		}
	}
	return CategoryOpaque, false
}

var (
	htmlTypes = map[string]bool{"text/html": true, "application/xhtml+xml": true}
	xmlTypes  = map[string]bool{"application/xml": true, "text/xml": true, "application/rss+xml": true, "application/atom+xml": true}
	cssTypes  = map[string]bool{"text/css": true}
	jsTypes   = map[string]bool{
		"application/javascript":   true,
		"text/javascript":          true,
		"application/x-javascript": true,
		"application/ecmascript":   true,
		"text/ecmascript":          true,
	}

	binaryPrefixes = []string{"image/", "audio/", "video/", "font/"}
	binaryTypes    = map[string]bool{
		"application/pdf":              true,
		"application/zip":              true,
		"application/gzip":             true,
		"application/x-gzip":           true,
		"application/x-tar":            true,
		"application/x-7z-compressed":  true,
		"application/vnd.rar":          true,
		"application/x-rar-compressed": true,
		"application/wasm":             true,
		"application/font-woff":        true,
		"application/x-font-ttf":       true,
		"application/vnd.ms-fontobject": true,
		"application/msword":           true,
		"application/protobuf":         true,
		"application/grpc":             true,
	}

	binaryExtensions = map[string]bool{
		"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true, "webp": true, "avif": true, "ico": true, "bmp": true,
		"mp3": true, "mp4": true, "webm": true, "ogg": true, "wav": true, "avi": true, "mov": true, "m4a": true, "flac": true,
		"woff": true, "woff2": true, "ttf": true, "otf": true, "eot": true,
		"zip": true, "rar": true, "7z": true, "tar": true, "gz": true, "br": true, "wasm": true,
		"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true, "pptx": true,
	}

	textExtensions = map[string]Category{
		"html": CategoryHTML, "htm": CategoryHTML, "xhtml": CategoryHTML,
		"css": CategoryCSS,
		"js": CategoryJS, "mjs": CategoryJS, "cjs": CategoryJS,
		"json": CategoryJSON, "map": CategoryJSON, "webmanifest": CategoryJSON,
		"xml": CategoryXML, "rss": CategoryXML, "atom": CategoryXML,
	}
)

// Classify decides the rewrite category from the declared content type and the
// target path. Binary media never reaches a text pass: a binary content type or
// a binary extension wins over everything except an explicit text type.
func Classify(contentType, targetPath string) Category {
	mt := mediaType(contentType)
	ext := extension(targetPath)

	switch {
	case htmlTypes[mt]:
		return CategoryHTML
	case cssTypes[mt]:
		return CategoryCSS
	case jsTypes[mt]:
		return CategoryJS
	case mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json"):
		return CategoryJSON
	case xmlTypes[mt]:
		return CategoryXML
	}

	if isBinaryType(mt) || binaryExtensions[ext] {
		return CategoryOpaque
	}

	if mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		if c, ok := textExtensions[ext]; ok {
			return c
		}
	}
	return CategoryOpaque
}

// IsStatic reports whether a response looks like a static asset that may be cached.
func IsStatic(contentType, targetPath string) bool {
	switch Classify(contentType, targetPath) {
	case CategoryCSS, CategoryJS:
		return true
	case CategoryOpaque:
		return isBinaryType(mediaType(contentType)) || binaryExtensions[extension(targetPath)]
	}
	return false
}

func isBinaryType(mt string) bool {
	if binaryTypes[mt] {
		return true
	}
	for _, p := range binaryPrefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	return false
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func extension(p string) string {
	ext := path.Ext(p)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
