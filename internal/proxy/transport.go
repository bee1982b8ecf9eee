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
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// firstByteTransport bounds the time until response headers arrive. The body is
// not subject to the limit, so long downloads and streams keep working.
type firstByteTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

func newTransport(next http.RoundTripper, timeout time.Duration) *firstByteTransport {
	if next == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ForceAttemptHTTP2 = true
		next = t
	}
	return &firstByteTransport{next: next, timeout: timeout}
}

func (t *firstByteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
		}
		return resp, nil
	}

	ctx, cancel := context.WithCancelCause(req.Context())
	timer := time.AfterFunc(t.timeout, func() { cancel(ErrUpstreamTimeout) })

	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	fired := !timer.Stop()

	if err != nil {
		cancel(nil)
		if fired || errors.Is(context.Cause(ctx), ErrUpstreamTimeout) {
			return nil, fmt.Errorf("%w: %s did not respond within %s", ErrUpstreamTimeout, req.URL.Host, t.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	if fired {
		resp.Body.Close()
		cancel(nil)
		return nil, fmt.Errorf("%w: %s did not respond within %s", ErrUpstreamTimeout, req.URL.Host, t.timeout)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: func() { cancel(nil) }}
	return resp, nil
}

// cancelOnClose releases the request context once the body is done with.
type cancelOnClose struct {
	io.ReadCloser
	cancel func()
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
