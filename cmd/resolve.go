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

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/dominikschlosser/prefixgate/internal/route"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Show the upstream URL a gateway path resolves to",
	Long:  "Resolves a gateway path such as /hexo/a/b.css?v=1 or /proxy/https%3A%2F%2Fexample.com through the route table without contacting any upstream.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

type resolution struct {
	Path   string `json:"path"`
	Target string `json:"target"`
	Prefix string `json:"prefix"`
	Mode   string `json:"mode"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		return err
	}

	res, err := resolvePath(table, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResolution(cmd.OutOrStdout(), res)
	return nil
}

// resolvePath resolves a gateway path, with optional query, through table.
func resolvePath(table *route.Table, raw string) (*resolution, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", raw, err)
	}

	t, err := table.Resolve(u.EscapedPath(), u.RawQuery)
	if errors.Is(err, route.ErrNoRuleMatched) {
		return nil, fmt.Errorf("%s: %w (the request would fall through to the default handler)", u.Path, err)
	}
	if err != nil {
		return nil, err
	}

	return &resolution{
		Path:   raw,
		Target: t.URL.String(),
		Prefix: t.Prefix,
		Mode:   t.Mode.String(),
	}, nil
}

func printResolution(w io.Writer, r *resolution) {
	label := color.New(color.FgYellow)
	value := color.New(color.FgCyan, color.Bold)

	fmt.Fprintf(w, "%s %s\n", label.Sprint("Path:  "), r.Path)
	fmt.Fprintf(w, "%s %s\n", label.Sprint("Mode:  "), r.Mode)
	fmt.Fprintf(w, "%s %s\n", label.Sprint("Prefix:"), r.Prefix)
	fmt.Fprintf(w, "%s %s\n", label.Sprint("Target:"), value.Sprint(r.Target))
}
