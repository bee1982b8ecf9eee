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

package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"loud", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSinksConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	writers, err := sinks(config.Log{Writer: []string{"console"}}, true, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(writers) != 1 {
		t.Fatalf("expected 1 writer, got %d", len(writers))
	}

	log := zerolog.New(writers[0])
	log.Info().Str("prefix", "/hexo").Msg("resolved")
	if !bytes.Contains(buf.Bytes(), []byte(`"prefix":"/hexo"`)) {
		t.Errorf("expected JSON field in output, got %q", buf.String())
	}
}

func TestSinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.log")
	writers, err := sinks(config.Log{Writer: []string{"file"}, File: path}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	lj, ok := writers[0].(*lumberjack.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer, got %T", writers[0])
	}
	if lj.Filename != path {
		t.Errorf("filename: got %q", lj.Filename)
	}
}

func TestSinksErrors(t *testing.T) {
	if _, err := sinks(config.Log{Writer: []string{"file"}}, false, nil); err == nil {
		t.Error("expected error for file writer without path")
	}
	if _, err := sinks(config.Log{Writer: []string{"syslog"}}, false, nil); err == nil {
		t.Error("expected error for unknown writer")
	}
}

func TestNewNoWriters(t *testing.T) {
	if _, err := New(config.Log{Level: "info"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(config.Log{Level: "nope", Writer: []string{"console"}}, false); err == nil {
		t.Error("expected error for bad level")
	}
}
