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
	"fmt"
	"net/url"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/dominikschlosser/prefixgate/internal/input"
	"github.com/dominikschlosser/prefixgate/internal/rewrite"
	"github.com/dominikschlosser/prefixgate/internal/route"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rewriteTarget string
	rewriteOrigin string
	rewriteType   string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [file|url|-]",
	Short: "Rewrite a document offline as the gateway would serve it",
	Long: `Runs the rewrite passes over a local file, a fetched URL or stdin and prints the result.

The document is treated as if it had been fetched from --target (defaults to the
URL it was fetched from). The route under which that URL is reachable decides
between prefix and generic mode.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().StringVar(&rewriteTarget, "target", "", "Upstream URL the document was served from")
	rewriteCmd.Flags().StringVar(&rewriteOrigin, "origin", "", "Gateway origin (defaults to public_origin or the listen address)")
	rewriteCmd.Flags().StringVar(&rewriteType, "type", "", "Force the content category: html, css, js, json, xml")
	rootCmd.AddCommand(rewriteCmd)
}

type rewriteReport struct {
	Target   string `json:"target"`
	Prefix   string `json:"prefix"`
	Mode     string `json:"mode"`
	Category string `json:"category"`
	Skipped  string `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
	Body     string `json:"body"`
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src := ""
	if len(args) > 0 {
		src = args[0]
	}
	doc, err := input.Read(src)
	if err != nil {
		return err
	}

	target := rewriteTarget
	if target == "" {
		target = doc.URL
	}
	origin := rewriteOrigin
	if origin == "" {
		origin = defaultOrigin(cfg)
	}

	report, err := rewriteDocument(cfg, doc, target, origin, rewriteType)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	warn := color.New(color.FgYellow)
	if report.Skipped != "" {
		warn.Fprintf(cmd.ErrOrStderr(), "rewrite skipped: %s\n", report.Skipped)
	}
	if report.Error != "" {
		warn.Fprintf(cmd.ErrOrStderr(), "rewrite failed, original body returned: %s\n", report.Error)
	}
	if verbose {
		color.New(color.Faint).Fprintf(cmd.ErrOrStderr(), "%s %s → %s [%s]\n", report.Mode, report.Prefix, report.Target, report.Category)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), report.Body)
	return err
}

// rewriteDocument rewrites doc as if it had been fetched from targetURL and served at origin.
func rewriteDocument(cfg *config.Config, doc *input.Document, targetURL, origin, typeName string) (*rewriteReport, error) {
	if targetURL == "" {
		return nil, fmt.Errorf("--target is required unless the document is fetched from a URL")
	}
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", route.ErrInvalidTargetURL, targetURL)
	}

	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		return nil, err
	}
	rules, err := rewrite.CompileRules(cfg.Hosts)
	if err != nil {
		return nil, err
	}

	category := rewrite.Classify(doc.ContentType, u.Path)
	if typeName != "" {
		c, ok := rewrite.ParseCategory(typeName)
		if !ok {
			return nil, fmt.Errorf("unknown content type %q", typeName)
		}
		category = c
	}

	t := table.Locate(u)
	plan := rewrite.NewPlan(t, origin, category)
	out := rewrite.NewEngine(rules, cfg.Limits.MaxRewriteBytes).Rewrite(doc.Body, plan)

	report := &rewriteReport{
		Target:   t.URL.String(),
		Prefix:   t.Prefix,
		Mode:     t.Mode.String(),
		Category: category.String(),
		Skipped:  out.Skipped,
		Body:     string(out.Body),
	}
	if out.Err != nil {
		report.Error = out.Err.Error()
	}
	return report, nil
}

// defaultOrigin is the gateway origin used when none is given on the command line.
func defaultOrigin(cfg *config.Config) string {
	if cfg.PublicOrigin != "" {
		return strings.TrimRight(cfg.PublicOrigin, "/")
	}
	if strings.HasPrefix(cfg.Listen, ":") {
		return "http://localhost" + cfg.Listen
	}
	return "http://" + cfg.Listen
}
