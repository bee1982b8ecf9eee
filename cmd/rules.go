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
	"io"
	"strings"

	"github.com/dominikschlosser/prefixgate/internal/config"
	"github.com/dominikschlosser/prefixgate/internal/route"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the effective route table and host profiles",
	Long:  "Lists the prefix routes in match order (most specific first) and the host profiles with their header overrides and special rewrite rules.",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

type routeInfo struct {
	Prefix string `json:"prefix"`
	Target string `json:"target"`
}

type rulesReport struct {
	Routes []routeInfo           `json:"routes"`
	Hosts  []config.HostProfile `json:"hosts,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := route.NewTable(cfg.Routes)
	if err != nil {
		return err
	}

	report := buildRulesReport(table, cfg.Hosts)
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printRulesReport(cmd.OutOrStdout(), report)
	return nil
}

func buildRulesReport(table *route.Table, hosts []config.HostProfile) rulesReport {
	r := rulesReport{Hosts: hosts}
	for _, rule := range table.Rules() {
		r.Routes = append(r.Routes, routeInfo{Prefix: rule.Prefix, Target: rule.Target.String()})
	}
	return r
}

func printRulesReport(w io.Writer, r rulesReport) {
	header := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgYellow)
	dim := color.New(color.Faint)

	width := len(config.GenericPrefix) + len("<url>")
	for _, rt := range r.Routes {
		width = max(width, len(rt.Prefix))
	}

	header.Fprintln(w, "Routes")
	for _, rt := range r.Routes {
		fmt.Fprintf(w, "  %s  %s\n", label.Sprintf("%-*s", width, rt.Prefix), rt.Target)
	}
	fmt.Fprintf(w, "  %s  %s\n", label.Sprintf("%-*s", width, config.GenericPrefix+"<url>"), dim.Sprint("any http(s) URL"))

	if len(r.Hosts) == 0 {
		return
	}
	fmt.Fprintln(w)
	header.Fprintln(w, "Hosts")
	for _, h := range r.Hosts {
		var notes []string
		if h.KeepCookies {
			notes = append(notes, "keeps cookies")
		}
		if len(h.Headers) > 0 {
			notes = append(notes, fmt.Sprintf("%d header overrides", len(h.Headers)))
		}
		if len(h.Rules) > 0 {
			notes = append(notes, fmt.Sprintf("%d rewrite rules", len(h.Rules)))
		}
		fmt.Fprintf(w, "  %s  %s\n", label.Sprint(h.Match), dim.Sprint(strings.Join(notes, ", ")))
		for _, rule := range h.Rules {
			types := "all"
			if len(rule.Types) > 0 {
				types = strings.Join(rule.Types, ",")
			}
			fmt.Fprintf(w, "    %s → %s %s\n", rule.Pattern, rule.Replace, dim.Sprintf("[%s]", types))
		}
	}
}
