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

package route

import (
	"errors"
	"net/url"
	"testing"
)

func TestResolveGenericEncodedAndRawAgree(t *testing.T) {
	enc, err := ResolveGeneric("/proxy/https%3A%2F%2Fexample.com%2Fa%2Fb", "")
	if err != nil {
		t.Fatalf("encoded: %v", err)
	}
	raw, err := ResolveGeneric("/proxy/https://example.com/a/b", "")
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if enc.URL.String() != raw.URL.String() {
		t.Errorf("encoded %q != raw %q", enc.URL, raw.URL)
	}
	if raw.URL.String() != "https://example.com/a/b" {
		t.Errorf("unexpected target %q", raw.URL)
	}
}

func TestResolveGeneric(t *testing.T) {
	tests := []struct {
		name, path, query, want string
	}{
		{"bare host gets https", "/proxy/example.com/x", "", "https://example.com/x"},
		{"http kept", "/proxy/http://example.com/", "", "http://example.com/"},
		{"inbound query appended", "/proxy/https://example.com/s", "q=go", "https://example.com/s?q=go"},
		{"own query wins", "/proxy/https%3A%2F%2Fexample.com%2Fs%3Fq%3Da", "q=b", "https://example.com/s?q=a"},
		{"collapsed slashes repaired", "/proxy/https:/example.com/a", "", "https://example.com/a"},
		{"upper-case scheme", "/proxy/HTTPS://example.com/a", "", "https://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := ResolveGeneric(tt.path, tt.query)
			if err != nil {
				t.Fatalf("ResolveGeneric: %v", err)
			}
			if got := target.URL.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if target.Base != nil {
				t.Error("generic target must not carry a base")
			}
		})
	}
}

func TestResolveGenericErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", "/proxy/", ErrMissingTarget},
		{"bad escape", "/proxy/https%3A%2F%2Fexa%ZZmple.com", ErrInvalidTargetURL},
		{"no host", "/proxy/https://", ErrInvalidTargetURL},
		{"other scheme", "/proxy/ftp://example.com/file", ErrInvalidTargetURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveGeneric(tt.path, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenericURLRoundTrip(t *testing.T) {
	abs, _ := url.Parse("https://example.com/a/b?x=1&y=2")
	got := GenericURL("https://edge.example", abs)
	want := "https://edge.example/proxy/https%3A%2F%2Fexample.com%2Fa%2Fb%3Fx%3D1%26y%3D2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	u, _ := url.Parse(got)
	back, err := ResolveGeneric(u.EscapedPath(), "")
	if err != nil {
		t.Fatalf("ResolveGeneric: %v", err)
	}
	if back.URL.String() != abs.String() {
		t.Errorf("round trip: got %q, want %q", back.URL, abs)
	}
}

func TestEncodeComponent(t *testing.T) {
	if got := EncodeComponent("a b/c"); got != "a%20b%2Fc" {
		t.Errorf("got %q", got)
	}
}
