// Command igfinder finds the Instagram profiles of people given their name and location.
//
// Usage:
//
//	igfinder search -name "Jane Doe" -location "Austin, TX"
//	igfinder import people.csv
//	igfinder run
//	igfinder export results.csv
//	igfinder monitor   # start and stop runs from the trigger
//	igfinder serve     # HTTP API plus the trigger monitor
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/api"
	"github.com/codeGROOVE-dev/igfinder/pkg/auth"
	"github.com/codeGROOVE-dev/igfinder/pkg/candcache"
	"github.com/codeGROOVE-dev/igfinder/pkg/config"
	"github.com/codeGROOVE-dev/igfinder/pkg/finder"
	_ "github.com/codeGROOVE-dev/igfinder/pkg/instagram" // register detail provider
	"github.com/codeGROOVE-dev/igfinder/pkg/monitor"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	_ "github.com/codeGROOVE-dev/igfinder/pkg/rapidapi" // register detail provider
	"github.com/codeGROOVE-dev/igfinder/pkg/ranker"
	"github.com/codeGROOVE-dev/igfinder/pkg/search"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
	"github.com/gin-gonic/gin"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: igfinder [options] <command> [args]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  search -name N [-location L] [-email E]  look up one person, JSON to stdout")
	fmt.Fprintln(os.Stderr, "  import <file.csv>                        add people from a spreadsheet export")
	fmt.Fprintln(os.Stderr, "  run                                      process every pending person once")
	fmt.Fprintln(os.Stderr, "  export <file.csv>                        write the result rows")
	fmt.Fprintln(os.Stderr, "  monitor                                  start and stop runs from the trigger")
	fmt.Fprintln(os.Stderr, "  serve                                    HTTP API plus the trigger monitor")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, hopts)
	if *logJSON {
		handler = slog.NewJSONHandler(os.Stderr, hopts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cfg, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer is acceptable in main
	}
}

func dispatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	switch cmd {
	case "search":
		return searchCmd(ctx, cfg, logger, args)
	case "import":
		if len(args) != 1 {
			return errors.New("import requires a CSV file")
		}
		return withStore(ctx, cfg, logger, func(store *worklist.SQLStore) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck // read-only
			n, err := worklist.ImportCSV(ctx, store, f)
			logger.InfoContext(ctx, "imported people", "file", args[0], "count", n)
			return err
		})
	case "export":
		if len(args) != 1 {
			return errors.New("export requires a CSV file")
		}
		return withStore(ctx, cfg, logger, func(store *worklist.SQLStore) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := worklist.ExportCSV(ctx, store, f); err != nil {
				_ = f.Close() //nolint:errcheck // already failing
				return err
			}
			return f.Close()
		})
	case "run":
		return withStore(ctx, cfg, logger, func(store *worklist.SQLStore) error {
			_, err := build(ctx, cfg, logger, store).Run(ctx)
			return err
		})
	case "monitor":
		return withStore(ctx, cfg, logger, func(store *worklist.SQLStore) error {
			f := build(ctx, cfg, logger, store)
			return monitor.New(store, f, monitor.WithLogger(logger), monitor.WithInterval(cfg.MonitorInterval)).Serve(ctx)
		})
	case "serve":
		return withStore(ctx, cfg, logger, func(store *worklist.SQLStore) error {
			return serve(ctx, cfg, logger, store)
		})
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(*worklist.SQLStore) error) error {
	store, err := worklist.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, worklist.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close store", "error", err)
		}
	}()
	return fn(store)
}

// build wires the pipeline from cfg. store may be nil for single lookups.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, store worklist.Store) *finder.Finder {
	cacheOpts := []candcache.Option{candcache.WithLogger(logger), candcache.WithCapacity(cfg.CacheSize)}

	lcfg := &profile.LookupConfig{Logger: logger}
	switch cfg.DetailProvider {
	case "rapidapi":
		lcfg.APIKey = cfg.RapidAPIKey
		lcfg.Host = cfg.RapidAPIHost
	case "instagram":
		lcfg.Cookies = auth.Resolve(ctx, nil, cfg.BrowserCookies, logger)
	}
	if l, err := profile.NewLookup(ctx, cfg.DetailProvider, lcfg); err != nil {
		logger.WarnContext(ctx, "detail lookups disabled", "provider", cfg.DetailProvider, "error", err)
	} else {
		cacheOpts = append(cacheOpts, candcache.WithLookup(l))
	}
	cache := candcache.New(cacheOpts...)

	transport := search.NewProxyTransport(search.ProxyConfig{
		Host:     cfg.SERPHost,
		Port:     cfg.SERPPort,
		User:     cfg.SERPUser,
		Password: cfg.SERPPassword,
	}, search.WithTransportLogger(logger))
	params := search.DefaultEngineParams()
	params.Country, params.Language, params.Results = cfg.SERPCountry, cfg.SERPLanguage, cfg.SERPResults
	searcher := search.New(transport, cache, search.WithLogger(logger), search.WithParams(params))

	var rk ranker.Ranker = ranker.Heuristic{}
	if cfg.Ranker == "llm" {
		if cfg.LLMAPIKey == "" {
			logger.WarnContext(ctx, "no LLM API key, ranking heuristically")
		} else {
			rk = ranker.NewLLM(cfg.LLMAPIKey,
				ranker.WithLogger(logger),
				ranker.WithBaseURL(cfg.LLMBaseURL),
				ranker.WithModel(cfg.LLMModel),
				ranker.WithPromptTokens(cfg.LLMPromptTokens))
		}
	}

	opts := []finder.Option{finder.WithLogger(logger), finder.WithDelay(cfg.ProfileDelay)}
	if store != nil {
		opts = append(opts, finder.WithStore(store))
	}
	return finder.New(searcher, rk, opts...)
}

func searchCmd(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	name := fs.String("name", "", "full name of the person (required)")
	location := fs.String("location", "", "city or region")
	email := fs.String("email", "", "known email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		fs.Usage()
		return errors.New("search requires -name")
	}

	o, err := build(ctx, cfg, logger, nil).Lookup(ctx, profile.Person{Name: *name, Location: *location, Email: *email})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *worklist.SQLStore) error {
	f := build(ctx, cfg, logger, store)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, f, store, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mon := monitor.New(store, f, monitor.WithLogger(logger), monitor.WithInterval(cfg.MonitorInterval))
	monErr := make(chan error, 1)
	go func() { monErr <- mon.Serve(ctx) }()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	logger.InfoContext(ctx, "serving", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return <-monErr
}
