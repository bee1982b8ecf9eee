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
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/config"
)

// collapsedScheme matches "https:/host" left behind by intermediaries that merge slashes.
var collapsedScheme = regexp.MustCompile(`(?i)^(https?):/([^/])`)

// ResolveGeneric decodes a /proxy/<target> path. The target may be percent-encoded
// or raw; a missing scheme defaults to https. The inbound query is carried over
// only when the target has none of its own.
func ResolveGeneric(escapedPath, rawQuery string) (*Target, error) {
	raw := strings.TrimPrefix(escapedPath, config.GenericPrefix)
	if raw == "" {
		return nil, ErrMissingTarget
	}

	if strings.Contains(raw, "%") {
		dec, err := url.PathUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
		}
		raw = dec
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingTarget
	}

	raw = collapsedScheme.ReplaceAllString(raw, "$1://$2")
	if !hasHTTPScheme(raw) {
		if i := strings.Index(raw, "://"); i > 0 && !strings.ContainsAny(raw[:i], "/?#") {
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTargetURL, raw[:i])
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargetURL, err)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTargetURL, raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""

	if rawQuery != "" && !strings.Contains(raw, "?") {
		u.RawQuery = rawQuery
	}

	return &Target{URL: u, Prefix: GenericMarker, Mode: ModeGeneric}, nil
}

func hasHTTPScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// GenericURL returns the generic proxy form of abs under origin.
func GenericURL(origin string, abs *url.URL) string {
	return strings.TrimRight(origin, "/") + config.GenericPrefix + EncodeComponent(abs.String())
}

// EncodeComponent percent-encodes s the way browsers' encodeURIComponent does.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
