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

// Package proxy is the HTTP face of the gateway: it resolves the inbound path,
// forwards the request upstream and assembles the rewritten response.
package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/dominikschlosser/prefixgate/internal/rewrite"
	"github.com/dominikschlosser/prefixgate/internal/route"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options holds the collaborators of the gateway server.
type Options struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Fallback  http.Handler      // serves unmatched paths; http.NotFoundHandler when nil
	Transport http.RoundTripper // upstream transport; a clone of http.DefaultTransport when nil
}

// Server is the content gateway. All of its state is built once and read-only
// afterwards, so a single Server serves any number of concurrent requests.
type Server struct {
	cfg      *config.Config
	table    *route.Table
	engine   *rewrite.Engine
	proxy    *httputil.ReverseProxy
	fallback http.Handler
	writer   EntryWriter
	log      zerolog.Logger
}

// NewServer compiles the route table and rewrite rules of opts.Config.
func NewServer(opts Options, writer EntryWriter) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("building route table: %w", err)
	}
	rules, err := rewrite.CompileRules(cfg.Hosts)
	if err != nil {
		return nil, fmt.Errorf("compiling rewrite rules: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		table:    table,
		engine:   rewrite.NewEngine(rules, cfg.Limits.MaxRewriteBytes),
		fallback: opts.Fallback,
		writer:   writer,
		log:      opts.Logger,
	}
	if s.fallback == nil {
		s.fallback = http.NotFoundHandler()
	}

	s.proxy = &httputil.ReverseProxy{
		Rewrite:        s.rewriteRequest,
		Transport:      newTransport(opts.Transport, cfg.Limits.FirstByteTimeout),
		ModifyResponse: s.modifyResponse,
		ErrorHandler:   s.handleError,
		FlushInterval:  -1,
	}

	return s, nil
}

// Table returns the compiled route table.
func (s *Server) Table() *route.Table {
	return s.table
}

// Engine returns the rewrite engine.
func (s *Server) Engine() *rewrite.Engine {
	return s.engine
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writePreflight(w)
		return
	}

	target, err := s.table.Resolve(r.URL.EscapedPath(), r.URL.RawQuery)
	if errors.Is(err, route.ErrNoRuleMatched) {
		s.fallback.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	entry := &Exchange{
		ID:        uuid.NewString(),
		Timestamp: start,
		Method:    r.Method,
		URL:       originalURL(r),
	}
	log := s.log.With().Str("id", entry.ID).Str("method", r.Method).Str("path", r.URL.Path).Logger()
	defer func() {
		entry.Duration = time.Since(start)
		entry.DurationMS = entry.Duration.Milliseconds()
		if s.writer != nil {
			s.writer.WriteEntry(entry)
		}
	}()

	if err != nil {
		entry.Error = err.Error()
		entry.StatusCode = writeError(w, entry.ID, err)
		log.Debug().Err(err).Msg("target rejected")
		return
	}

	entry.Target = target.URL.String()
	entry.Prefix = target.Prefix
	entry.Mode = target.Mode.String()
	log.Debug().Str("mode", entry.Mode).Str("prefix", target.Prefix).Str("target", entry.Target).Msg("route resolved")

	x := &exchange{
		entry:  entry,
		target: target,
		origin: s.proxyOrigin(r),
		log:    log,
	}
	x.profile, _ = s.cfg.Profile(target.URL.Hostname())

	s.proxy.ServeHTTP(w, r.WithContext(withExchange(r.Context(), x)))
}

// handleError turns transport and response assembly failures into error responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	x := exchangeFrom(r.Context())
	if !errors.Is(err, ErrUpstreamTimeout) && !errors.Is(err, ErrUpstreamUnreachable) {
		err = fmt.Errorf("%w: %v", ErrInternal, err)
	}

	x.entry.Error = err.Error()
	x.entry.StatusCode = writeError(w, x.entry.ID, err)
	x.log.Warn().Err(err).Str("target", x.entry.Target).Msg("upstream request failed")
}

// originalURL reconstructs the URL the client originally requested.
// It honours X-Forwarded-Host / X-Forwarded-Proto if present (i.e. when
// the gateway itself sits behind another reverse proxy), otherwise it falls
// back to the incoming Host header and request URI.
func originalURL(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return requestScheme(r) + "://" + host + uri
}
