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

// Package logging builds the gateway's diagnostic logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a logger for the configured level and sinks.
// With jsonOutput the console sink emits raw JSON lines instead of the human-readable format.
func New(cfg config.Log, jsonOutput bool) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	writers, err := sinks(cfg, jsonOutput, os.Stderr)
	if err != nil {
		return zerolog.Nop(), err
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop(), nil
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func sinks(cfg config.Log, jsonOutput bool, console io.Writer) ([]io.Writer, error) {
	var writers []io.Writer
	for _, w := range cfg.Writer {
		switch strings.ToLower(strings.TrimSpace(w)) {
		case "console":
			if jsonOutput {
				writers = append(writers, console)
			} else {
				writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
			}
		case "file":
			if cfg.File == "" {
				return nil, fmt.Errorf("log writer \"file\" requires log.file")
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     28,
			})
		default:
			return nil, fmt.Errorf("unknown log writer %q", w)
		}
	}
	return writers, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
