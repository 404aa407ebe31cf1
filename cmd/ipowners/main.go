// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wingedpig/ipowners/pkg/config"
	"github.com/wingedpig/ipowners/pkg/csvout"
	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/resolver"
	"github.com/wingedpig/ipowners/pkg/respcache"
	"github.com/wingedpig/ipowners/pkg/sources/whois"
	"github.com/wingedpig/ipowners/pkg/targets"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flagCfg := config.Default()
	var configPath string
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "ipowners -i <targets-file> [-o owners.csv]",
		Short: "Resolve network ownership for IPs and hostnames via WHOIS",
		Long: `ipowners queries WHOIS for every target in the input file (one per line,
blank lines and # comments ignored) and writes one CSV row per target:
ip, net_range, owner, description.

For IPv4 targets the most specific NetRange/inetnum block containing the
address is used. Hostnames use the first range-bearing block.`,
		Example: `  ipowners -i scope.txt
  ipowners -i scope.txt -o owners.csv -t 8 -w 30
  ipowners -i scope.txt --backend library --cache-db ./whois-cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "ipowners version %s\n", version)
				return nil
			}

			cfg := flagCfg
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				applyFlags(cmd.Flags(), loaded, flagCfg)
				cfg = loaded
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			list, err := targets.Load(cfg.Input)
			if err != nil {
				if errors.Is(err, model.ErrNoTargets) {
					return fmt.Errorf("%s: %w", cfg.Input, err)
				}
				return err
			}

			// Input is usable; later failures are not usage errors
			cmd.SilenceUsage = true
			return run(cmd.Context(), cfg, list)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flagCfg.Input, "input", "i", flagCfg.Input, "File with one IP or hostname per line (required)")
	fs.StringVarP(&flagCfg.Output, "output", "o", flagCfg.Output, "CSV output file")
	fs.IntVarP(&flagCfg.Threads, "threads", "t", flagCfg.Threads, "Number of concurrent WHOIS queries")
	fs.IntVarP(&flagCfg.TimeoutSeconds, "timeout", "w", flagCfg.TimeoutSeconds, "Per-query timeout in seconds")
	fs.StringVar(&flagCfg.Backend, "backend", flagCfg.Backend, "Query backend: command (whois binary) or library (in-process)")
	fs.StringVar(&flagCfg.WhoisBin, "whois-bin", flagCfg.WhoisBin, "Path to the whois binary for the command backend")
	fs.Float64Var(&flagCfg.RateLimit, "rate", flagCfg.RateLimit, "Maximum queries per second (0 = unlimited)")
	fs.IntVar(&flagCfg.Retries, "retries", flagCfg.Retries, "Retries for timed out or empty responses")
	fs.StringVar(&flagCfg.Cache.Path, "cache-db", flagCfg.Cache.Path, "LevelDB directory for caching responses (empty = no cache)")
	fs.DurationVar(&flagCfg.Cache.TTL, "cache-ttl", flagCfg.Cache.TTL, "How long cached responses are served")
	fs.BoolVar(&flagCfg.Cache.Prune, "cache-prune", flagCfg.Cache.Prune, "Delete expired cache entries before running")
	fs.BoolVar(&flagCfg.Unordered, "unordered", flagCfg.Unordered, "Write rows as they complete instead of in input order")
	fs.BoolVarP(&flagCfg.Verbose, "verbose", "v", flagCfg.Verbose, "Log which block was selected for each target")
	fs.StringVar(&configPath, "config", "", "YAML config file; explicit flags override it")
	fs.BoolVar(&showVersion, "version", false, "Show version")

	return cmd
}

// applyFlags copies explicitly set flags from src over dst
func applyFlags(fs *pflag.FlagSet, dst, src *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "input":
			dst.Input = src.Input
		case "output":
			dst.Output = src.Output
		case "threads":
			dst.Threads = src.Threads
		case "timeout":
			dst.TimeoutSeconds = src.TimeoutSeconds
		case "backend":
			dst.Backend = src.Backend
		case "whois-bin":
			dst.WhoisBin = src.WhoisBin
		case "rate":
			dst.RateLimit = src.RateLimit
		case "retries":
			dst.Retries = src.Retries
		case "cache-db":
			dst.Cache.Path = src.Cache.Path
		case "cache-ttl":
			dst.Cache.TTL = src.Cache.TTL
		case "cache-prune":
			dst.Cache.Prune = src.Cache.Prune
		case "unordered":
			dst.Unordered = src.Unordered
		case "verbose":
			dst.Verbose = src.Verbose
		}
	})
}

func run(ctx context.Context, cfg *config.Config, list []model.Target) error {
	var backend whois.Querier
	switch cfg.Backend {
	case config.BackendLibrary:
		backend = whois.NewLibraryClient(cfg.Timeout())
	default:
		backend = whois.NewCommandClient(cfg.WhoisBin, cfg.Timeout())
	}

	var querier whois.Querier = whois.NewClient(backend, whois.ClientOptions{
		RateLimit: cfg.RateLimit,
		Retries:   cfg.Retries,
	})

	var cached *whois.CachedClient
	if cfg.Cache.Path != "" {
		cache, err := respcache.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()

		if cfg.Cache.Prune {
			pruned, err := cache.Prune(cfg.Cache.TTL, time.Now())
			if err != nil {
				log.Printf("WARN: Cache prune failed: %v", err)
			} else {
				log.Printf("INFO: Pruned %d expired cache entries", pruned)
			}
		}
		if n, err := cache.Count(); err == nil {
			log.Printf("INFO: Using response cache %s (%d entries, ttl %s)", cache.Path(), n, cfg.Cache.TTL)
		}

		cached = whois.NewCachedClient(querier, cache, cfg.Cache.TTL)
		querier = cached
	}

	out, err := csvout.Create(cfg.Output, cfg.Ordered())
	if err != nil {
		return err
	}

	log.Printf("INFO: Resolving %d targets with %d workers (%s backend, timeout %s)",
		len(list), cfg.Threads, cfg.Backend, cfg.Timeout())

	r := resolver.New(querier, cfg.Threads, log.New(os.Stderr, "", 0))
	r.SetVerbose(cfg.Verbose)

	summary, runErr := r.Run(ctx, list, out)
	closeErr := out.Close()

	log.Printf("INFO: Wrote %d of %d rows to %s in %s",
		out.Written(), summary.Total, cfg.Output, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	log.Printf("INFO: ok: %d, cached: %d, timeout: %d, failed: %d, no range: %d",
		summary.ByStatus[model.StatusOK], summary.ByStatus[model.StatusCached],
		summary.ByStatus[model.StatusTimeout], summary.ByStatus[model.StatusFailed], summary.NoRange)
	if cached != nil {
		hits, misses := cached.Stats()
		log.Printf("INFO: Cache hits: %d, misses: %d", hits, misses)
	}

	return errors.Join(runErr, closeErr)
}
