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
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/dominikschlosser/prefixgate/internal/rewrite"
	"github.com/dominikschlosser/prefixgate/internal/route"
)

const (
	headerRequestID     = "X-Proxy-Request-Id"
	headerSkipped       = "X-Proxy-Skipped-Rewrite"
	headerRewriteError  = "X-Proxy-Rewrite-Error"
	corsAllowMethods    = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	corsAllowHeaders    = "Content-Type, Authorization, X-Requested-With, Accept, Origin, Range, Upgrade"
	corsExposeHeaders   = "Content-Length, Content-Type, Content-Disposition"
	htmlCacheControl    = "no-store, no-cache, must-revalidate, proxy-revalidate"
	preflightMaxAgeSecs = "86400"
)

// blockingHeaders keep rewritten resources from loading under the gateway origin.
var blockingHeaders = []string{
	"Content-Security-Policy",
	"Content-Security-Policy-Report-Only",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Cross-Origin-Embedder-Policy",
	"Cross-Origin-Opener-Policy",
	"Cross-Origin-Resource-Policy",
}

// modifyResponse assembles the client response: redirects, body rewriting and headers.
func (s *Server) modifyResponse(resp *http.Response) error {
	x := exchangeFrom(resp.Request.Context())
	x.entry.StatusCode = resp.StatusCode

	contentType := resp.Header.Get("Content-Type")
	category := rewrite.Classify(contentType, x.target.URL.Path)
	plan := rewrite.NewPlan(x.target, x.origin, category)
	x.entry.Category = category.String()

	s.mapRedirects(resp, x, plan)

	encoded, err := s.rewriteBody(resp, x, plan)
	if err != nil {
		return err
	}

	h := resp.Header
	h.Del("Content-Length")
	h.Del("Transfer-Encoding")
	if !encoded {
		h.Del("Content-Encoding")
	}
	if !x.profile.KeepCookies {
		h.Del("Set-Cookie")
	}
	if resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	setCORS(h)
	for _, k := range blockingHeaders {
		h.Del(k)
	}
	setCachePolicy(h, category, rewrite.IsStatic(contentType, x.target.URL.Path), s.cfg.Limits.StaticMaxAge)
	h.Set(headerRequestID, x.entry.ID)
	return nil
}

// rewriteBody runs the rewrite engine over text bodies that fit the size ceiling.
// It reports whether the body is still content-encoded.
func (s *Server) rewriteBody(resp *http.Response, x *exchange, plan *rewrite.Plan) (bool, error) {
	limit := s.engine.MaxBytes()
	if limit > 0 && resp.ContentLength > limit {
		s.markTooLarge(resp, x)
		return resp.Header.Get("Content-Encoding") != "", nil
	}

	if plan.Category == rewrite.CategoryOpaque || resp.Body == nil || resp.Body == http.NoBody {
		x.entry.Rewrite = rewrite.SkipOpaque
		return resp.Header.Get("Content-Encoding") != "", nil
	}

	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
		resp.ContentLength = -1
	default:
		x.entry.Rewrite = "encoded-" + enc
		x.log.Debug().Str("encoding", enc).Msg("body left encoded")
		return true, nil
	}

	var src io.Reader = resp.Body
	if limit > 0 {
		src = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		resp.Body.Close()
		return false, fmt.Errorf("%w: reading body: %v", ErrUpstreamUnreachable, err)
	}
	if limit > 0 && int64(len(body)) > limit {
		resp.Body = &decodedBody{Reader: io.MultiReader(bytes.NewReader(body), resp.Body), Closer: resp.Body}
		s.markTooLarge(resp, x)
		return false, nil
	}
	resp.Body.Close()

	out := s.engine.Rewrite(body, plan)
	switch {
	case out.Err != nil:
		x.entry.Rewrite = rewriteFallback
		resp.Header.Set(headerRewriteError, rewriteFallback)
		x.log.Warn().Err(out.Err).Str("category", plan.Category.String()).Msg("rewrite failed, returning original body")
	case out.Skipped != "":
		x.entry.Rewrite = out.Skipped
	default:
		x.entry.Rewrite = rewriteApplied
	}

	resp.Body = io.NopCloser(bytes.NewReader(out.Body))
	resp.ContentLength = int64(len(out.Body))
	return false, nil
}

func (s *Server) markTooLarge(resp *http.Response, x *exchange) {
	x.entry.Rewrite = rewrite.SkipFileTooLarge
	resp.Header.Set(headerSkipped, rewrite.SkipFileTooLarge)
	x.log.Info().Int64("limit", s.engine.MaxBytes()).Int64("length", resp.ContentLength).Msg("body too large, rewrite skipped")
}

// decodedBody reads from a wrapping reader and closes the upstream body.
type decodedBody struct {
	io.Reader
	io.Closer
}

// mapRedirects maps Location on 3xx responses and Content-Location on any response.
func (s *Server) mapRedirects(resp *http.Response, x *exchange, plan *rewrite.Plan) {
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			if mapped, ok := mapLocation(loc, x.target, plan); ok {
				resp.Header.Set("Location", mapped)
				x.entry.Location = mapped
				x.log.Debug().Str("from", loc).Str("to", mapped).Msg("redirect rewritten")
			} else {
				x.entry.Location = loc
			}
		}
	}
	if cl := resp.Header.Get("Content-Location"); cl != "" {
		if mapped, ok := mapLocation(cl, x.target, plan); ok {
			resp.Header.Set("Content-Location", mapped)
		}
	}
}

// mapLocation resolves a redirect target against the upstream URL. Same-origin
// targets are routed back through the gateway; in generic mode every http(s)
// target is re-wrapped. Other targets are returned unchanged.
func mapLocation(loc string, t *route.Target, plan *rewrite.Plan) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(loc))
	if err != nil {
		return loc, false
	}
	abs := t.URL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return loc, false
	}

	if t.Mode == route.ModeGeneric {
		return route.GenericURL(plan.ProxyOrigin, abs), true
	}
	if !strings.EqualFold(abs.Scheme, t.URL.Scheme) || !strings.EqualFold(abs.Host, t.URL.Host) {
		return loc, false
	}
	return plan.MapAbsolute(abs)
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
	h.Del("Access-Control-Allow-Credentials")
}

// setCachePolicy disables caching of HTML, whose rewritten form depends on the
// gateway origin, and gives static assets a fixed lifetime. Other responses
// keep the upstream policy.
func setCachePolicy(h http.Header, c rewrite.Category, static bool, maxAge int) {
	switch {
	case c == rewrite.CategoryHTML:
		h.Set("Cache-Control", htmlCacheControl)
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
	case static:
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
		h.Del("Pragma")
		h.Del("Expires")
	}
}

// writePreflight answers a CORS preflight without contacting any upstream.
func writePreflight(w http.ResponseWriter) {
	h := w.Header()
	setCORS(h)
	h.Set("Access-Control-Max-Age", preflightMaxAgeSecs)
	w.WriteHeader(http.StatusNoContent)
}
