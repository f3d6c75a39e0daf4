package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/modgraph/internal/config"
	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/mcptools"
	"github.com/dusk-indust/modgraph/internal/rpc"
)

// serveFlags are the command-line overrides of config.Config.
type serveFlags struct {
	Dir       string
	Addr      string
	MCPAddr   string
	MCPStdio  bool
	Debounce  time.Duration
	CacheSize int
	Origins   string
	Verbose   bool
}

func runServe(args []string) error {
	var flags serveFlags

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&flags.Dir, "dir", ".", "directory holding modgraph.yml and .env")
	fs.StringVar(&flags.Addr, "addr", "", "listen address of the collector endpoint (default "+config.DefaultAddr+")")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "listen address of the streamable HTTP MCP server (disabled when empty)")
	fs.BoolVar(&flags.MCPStdio, "mcp-stdio", false, "serve MCP on stdin/stdout")
	fs.DurationVar(&flags.Debounce, "debounce", 0, "quiet period before graphs are rebuilt (default 150ms)")
	fs.IntVar(&flags.CacheSize, "cache-size", 0, "resolver cache entries (default 4096)")
	fs.StringVar(&flags.Origins, "origins", "", "comma-separated browser origins allowed to connect, * for any")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loaded, err := config.Load(flags.Dir)
	if err != nil {
		return err
	}
	cfg := applyServeFlags(*loaded, fs, flags).WithDefaults()
	if cfg.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, flags.MCPStdio)
}

// applyServeFlags overrides cfg with every flag set on the command line.
func applyServeFlags(cfg config.Config, fs *flag.FlagSet, flags serveFlags) config.Config {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = flags.Addr
		case "mcp-addr":
			cfg.MCPAddr = flags.MCPAddr
		case "debounce":
			cfg.Debounce = flags.Debounce
		case "cache-size":
			cfg.ResolverCacheSize = flags.CacheSize
		case "origins":
			cfg.AllowedOrigins = nil
			for _, o := range strings.Split(flags.Origins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
				}
			}
		case "verbose":
			cfg.Verbose = flags.Verbose
		}
	})
	return cfg
}

// serve runs the collector endpoint and, when configured, the MCP server
// until ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg config.Config, mcpStdio bool) error {
	e := engine.New(
		engine.WithDebounce(cfg.Debounce),
		engine.WithResolverCacheSize(cfg.ResolverCacheSize),
	)
	defer e.Close()

	parser := ingest.NewTreeSitterParser()
	defer parser.Close()
	collector := ingest.NewCollector(e, ingest.WithParser(parser))

	store, err := newServeIndex()
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer store.Close()
	svc := mcptools.NewGraphService(e, store)

	srv := rpc.NewServer(e, collector, rpc.WithAllowedOrigins(cfg.AllowedOrigins))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr)
	})
	if cfg.MCPAddr != "" {
		g.Go(func() error {
			log.Printf("mcp: listening on %s", cfg.MCPAddr)
			return mcptools.RunMCPServer(gctx, svc, cfg.MCPAddr)
		})
	}
	if mcpStdio {
		// The MCP client owns the process lifetime: closing stdin stops everything.
		g.Go(func() error {
			defer cancel()
			return mcptools.RunMCPServerStdio(gctx, svc)
		})
	}
	return g.Wait()
}
