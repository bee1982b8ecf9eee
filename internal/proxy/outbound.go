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

package proxy

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// clientIPHeaders are consulted in order before the inbound X-Forwarded-For chain.
var clientIPHeaders = []string{"X-Nf-Client-Connection-Ip", "Cf-Connecting-Ip", "X-Real-Ip"}

// rewriteRequest builds the outbound request for the exchange stored in the inbound context.
func (s *Server) rewriteRequest(pr *httputil.ProxyRequest) {
	x := exchangeFrom(pr.In.Context())
	target := x.target.URL

	u := *target
	pr.Out.URL = &u
	pr.Out.Host = target.Host

	h := pr.Out.Header
	if ip := clientIP(pr.In); ip != "" {
		h.Set("X-Forwarded-For", ip)
	}
	h.Set("X-Forwarded-Host", pr.In.Host)
	h.Set("X-Forwarded-Proto", requestScheme(pr.In))

	origin := target.Scheme + "://" + target.Host
	h.Set("Referer", rewriteReferer(h.Get("Referer"), origin))
	if h.Get("Origin") != "" {
		h.Set("Origin", origin)
	}

	h.Del("Accept-Encoding")
	if !x.profile.KeepCookies {
		h.Del("Cookie")
	}
	for k, v := range x.profile.Headers {
		h.Set(k, v)
	}
}

// clientIP returns the best available client address signal.
func clientIP(r *http.Request) string {
	for _, k := range clientIPHeaders {
		if v := strings.TrimSpace(r.Header.Get(k)); v != "" {
			return v
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rewriteReferer moves a referer onto the target origin, keeping its path and query.
// An absent or unparseable referer becomes the target root.
func rewriteReferer(referer, targetOrigin string) string {
	if referer == "" {
		return targetOrigin + "/"
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return targetOrigin + "/"
	}
	out := targetOrigin + u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

func requestScheme(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// proxyOrigin returns the gateway origin as seen by the client. A configured
// public origin wins; otherwise it honours X-Forwarded-Host/Proto when the
// gateway sits behind another reverse proxy.
func (s *Server) proxyOrigin(r *http.Request) string {
	if s.cfg.PublicOrigin != "" {
		return strings.TrimRight(s.cfg.PublicOrigin, "/")
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return requestScheme(r) + "://" + host
}
