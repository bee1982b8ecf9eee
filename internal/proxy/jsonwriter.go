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
	"encoding/json"
	"io"
	"os"
	"sync"
)

// JSONWriter writes exchanges as NDJSON (one JSON object per line).
type JSONWriter struct {
	mu         sync.Mutex
	enc        *json.Encoder
	allTraffic bool
}

// NewJSONWriter creates a writer that emits NDJSON to stdout.
func NewJSONWriter(allTraffic bool) *JSONWriter {
	return NewJSONWriterTo(os.Stdout, allTraffic)
}

// NewJSONWriterTo creates a writer that emits NDJSON to the given writer.
func NewJSONWriterTo(w io.Writer, allTraffic bool) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONWriter{enc: enc, allTraffic: allTraffic}
}

func (j *JSONWriter) WriteEntry(e *Exchange) {
	if !e.Notable() && !j.allTraffic {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enc.Encode(e)
}
