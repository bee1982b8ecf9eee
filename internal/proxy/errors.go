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
	"errors"
	"fmt"
	"net/http"

	"github.com/dominikschlosser/prefixgate/internal/route"
)

var (
	// ErrUpstreamTimeout means the target sent no response headers within the first-byte timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnreachable covers every other failure to obtain a response from the target.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrInternal is reported for failures while assembling the response.
	ErrInternal = errors.New("internal error")
)

// statusFor maps an error to the status code returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, route.ErrMissingTarget), errors.Is(err, route.ErrInvalidTargetURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, ErrUpstreamUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a plain-text error response. Internal failures are not
// described to the client beyond their status.
func writeError(w http.ResponseWriter, requestID string, err error) int {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = ErrInternal.Error()
	}

	h := w.Header()
	setCORS(h)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	if requestID != "" {
		h.Set(headerRequestID, requestID)
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s: %s\n", code, http.StatusText(code), msg)
	return code
}
