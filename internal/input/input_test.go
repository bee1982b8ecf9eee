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

package input

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.css")
	if err := os.WriteFile(path, []byte("  .a{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc.Body) != "  .a{}\n" {
		t.Errorf("body must be byte-for-byte, got %q", doc.Body)
	}
	if !strings.HasPrefix(doc.ContentType, "text/css") {
		t.Errorf("content type from extension: got %q", doc.ContentType)
	}
}

func TestReadFile_NotFound(t *testing.T) {
	if _, err := Read("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestReadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/page.html", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<p>hi</p>")
	}))
	defer srv.Close()

	doc, err := Read(srv.URL + "/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc.Body) != "<p>hi</p>" {
		t.Errorf("body: %q", doc.Body)
	}
	if doc.ContentType != "text/html; charset=utf-8" {
		t.Errorf("content type: %q", doc.ContentType)
	}
	if doc.URL != srv.URL+"/page.html" {
		t.Errorf("final URL: %q", doc.URL)
	}
}

func TestReadURL_Status(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := Read(srv.URL); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}
