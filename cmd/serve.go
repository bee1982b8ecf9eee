// Copyright 2025 Dominik Schlosser
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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dominikschlosser/prefixgate/internal/proxy"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listenAddr   string
	publicOrigin string
	allTraffic   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long:  "Starts the gateway HTTP server. Every finished exchange is summarized on stdout; diagnostics go to the configured log sinks.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&publicOrigin, "public-origin", "", "Origin clients reach the gateway at, e.g. https://edge.example (overrides config)")
	serveCmd.Flags().BoolVar(&allTraffic, "all-traffic", false, "Show all exchanges, not just rewrites, redirects and errors")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if publicOrigin != "" {
		cfg.PublicOrigin = publicOrigin
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	var writer proxy.EntryWriter
	if jsonOutput {
		writer = proxy.NewJSONWriter(allTraffic)
	} else {
		writer = &proxy.TerminalWriter{AllTraffic: allTraffic}
	}

	gw, err := proxy.NewServer(proxy.Options{Config: cfg, Logger: log}, writer)
	if err != nil {
		return err
	}

	if !jsonOutput {
		printBanner(cfg.Listen, cfg.PublicOrigin, len(gw.Table().Rules()))
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Listen).Msg("gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printBanner(listen, origin string, routes int) {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	if origin == "" {
		origin = "(from request)"
	}

	cyan.Printf("prefixgate\n")
	dim.Println("───────────────────────────────────────")
	fmt.Printf("  Listen:    %s\n", listen)
	fmt.Printf("  Origin:    %s\n", origin)
	fmt.Printf("  Routes:    %d prefixes + /proxy/<url>\n", routes)
	dim.Println("───────────────────────────────────────")
	fmt.Println()
}
