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
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgYellow)
	valueColor   = color.New(color.FgWhite)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	classColor   = color.New(color.FgMagenta, color.Bold)
)

// TerminalWriter writes exchanges to the terminal with color formatting.
type TerminalWriter struct {
	AllTraffic bool
	Out        io.Writer // defaults to color.Output

	mu sync.Mutex
}

func (tw *TerminalWriter) WriteEntry(e *Exchange) {
	if !e.Notable() && !tw.AllTraffic {
		return
	}
	out := tw.Out
	if out == nil {
		out = color.Output
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	PrintEntry(out, e)
}

// PrintEntry prints an exchange with color formatting.
func PrintEntry(w io.Writer, e *Exchange) {
	ts := e.Timestamp.Format("15:04:05")

	statusFn := successColor.Sprintf
	if e.StatusCode >= 400 || e.Error != "" {
		statusFn = errorColor.Sprintf
	}

	label := e.Category
	if e.Rewrite != "" {
		label += " " + e.Rewrite
	}

	fmt.Fprintf(w, "%s %s %s %s  %s  %s\n",
		dimColor.Sprint("━━━"),
		dimColor.Sprintf("[%s]", ts),
		headerColor.Sprintf("%s %s", e.Method, truncateURL(e.URL, 80)),
		statusFn("← %d", e.StatusCode),
		dimColor.Sprintf("(%dms)", e.DurationMS),
		classColor.Sprintf("[%s]", strings.TrimSpace(label)),
	)

	printField(w, "target", e.Target)
	if e.Mode != "" && e.Prefix != "" {
		printField(w, "route", e.Mode+" "+e.Prefix)
	}
	printField(w, "location", e.Location)
	if e.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("┌ error:"), errorColor.Sprint(e.Error))
	}
	fmt.Fprintf(w, "  %s\n", dimColor.Sprint(e.ID))
	fmt.Fprintln(w)
}

func printField(w io.Writer, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(w, "  %s %s\n", labelColor.Sprintf("┌ %s:", key), valueColor.Sprint(truncateURL(val, 120)))
}

func truncateURL(u string, maxLen int) string {
	if len(u) <= maxLen {
		return u
	}
	return u[:maxLen] + "..."
}
