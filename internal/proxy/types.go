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
	"context"
	"time"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/dominikschlosser/prefixgate/internal/rewrite"
	"github.com/dominikschlosser/prefixgate/internal/route"
	"github.com/rs/zerolog"
)

// Rewrite states reported in Exchange.Rewrite besides the engine's skip reasons.
const (
	rewriteApplied  = "rewritten"
	rewriteFallback = "fallback"
)

// Exchange summarizes one proxied request/response pair.
type Exchange struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	URL        string        `json:"url"`
	Target     string        `json:"target,omitempty"`
	Prefix     string        `json:"prefix,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	StatusCode int           `json:"statusCode"`
	Category   string        `json:"category,omitempty"`
	Rewrite    string        `json:"rewrite,omitempty"` // rewritten, fallback or the skip reason
	Location   string        `json:"location,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	DurationMS int64         `json:"durationMs"`
}

// Notable reports whether the exchange did more than pass bytes through:
// a rewrite ran or failed, the upstream redirected, or the request errored.
func (e *Exchange) Notable() bool {
	if e.Error != "" || e.Location != "" || e.StatusCode >= 400 {
		return true
	}
	switch e.Rewrite {
	case rewriteApplied, rewriteFallback, rewrite.SkipFileTooLarge:
		return true
	}
	return false
}

// EntryWriter receives a summary of every finished exchange. Implementations
// must be safe for concurrent use.
type EntryWriter interface {
	WriteEntry(e *Exchange)
}

// exchange is the per-request state shared between the handler and the
// reverse proxy hooks through the request context.
type exchange struct {
	entry   *Exchange
	target  *route.Target
	origin  string
	profile config.HostProfile
	log     zerolog.Logger
}

type exchangeKey struct{}

func withExchange(ctx context.Context, x *exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, x)
}

func exchangeFrom(ctx context.Context) *exchange {
	x, _ := ctx.Value(exchangeKey{}).(*exchange)
	return x
}
