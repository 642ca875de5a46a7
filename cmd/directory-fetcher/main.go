// Command directory-fetcher downloads the groups or users of a directory
// and saves each one as a JSON file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emanuelebuldrini/msgraph-fetcher/internal/app"
	"github.com/emanuelebuldrini/msgraph-fetcher/internal/config"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/graph"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/ldapdir"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/logging"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/metrics"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/store"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// CLI is the command line.
type CLI struct {
	Config   string `help:"Path to the settings file (default: CONFIG_PATH, then ./appsettings.json)." short:"c"`
	Source   string `help:"Directory to read from." enum:"graph,ldap" default:"graph"`
	Out      string `help:"Base output directory (default: MSGraph next to the executable)." short:"o"`
	Compact  bool   `help:"Write JSON files without indentation."`
	Pretty   bool   `help:"Human-readable console logs instead of JSON."`
	LogLevel string `help:"Minimum log level: debug, info, warn, error." name:"log-level"`

	Groups struct{} `cmd:"" help:"Download all groups."`
	Users  struct{} `cmd:"" help:"Download all users."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("directory-fetcher"),
		kong.Description("Download directory groups or users from Microsoft Graph or LDAP as JSON files."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	kind, err := app.ParseKind(kctx.Command())
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
	if err := cli.apply(cfg); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	logCfg := cfg.Logging()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	source, closeSource, err := openSource(ctx, cli.Source, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("source", cli.Source).Msg("Cannot open directory source")
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
	defer closeSource()

	var opts []store.Option
	if !cfg.Store.Compact {
		opts = append(opts, store.Pretty())
	}

	out, err := app.New(cfg.Store.BaseDir, opts...).Download(ctx, source, kind)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}

	fmt.Fprintf(stdout, "%d %s fetched, %d saved at %q\n", out.Fetched, kind, out.Result.SavedCount, out.Result.Location)
	for _, saveErr := range out.Result.Errors {
		fmt.Fprintln(stderr, "Skipped:", saveErr)
	}
	return exitOK
}

// apply lets flags override the loaded configuration.
func (c *CLI) apply(cfg *config.Config) error {
	if c.Out != "" {
		cfg.Store.BaseDir = c.Out
	}
	if c.Compact {
		cfg.Store.Compact = true
	}
	if c.Pretty {
		cfg.Log.Pretty = true
	}
	if c.LogLevel != "" {
		level, err := logging.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		cfg.Log.Level = string(level)
	}
	return nil
}

// openSource builds the selected directory source and the function that
// releases it.
func openSource(ctx context.Context, name string, cfg *config.Config, logger zerolog.Logger) (app.Source, func(), error) {
	switch name {
	case "ldap":
		if err := cfg.ValidateLDAP(); err != nil {
			return nil, nil, err
		}
		ldapCfg := cfg.LDAPSource()
		conn, err := ldapdir.Dial(ldapCfg)
		if err != nil {
			return nil, nil, err
		}
		return ldapdir.NewSource(conn, ldapCfg), func() { conn.Close() }, nil

	case "graph", "":
		if err := cfg.ValidateGraph(); err != nil {
			return nil, nil, err
		}
		rdb := connectRedis(ctx, cfg, logger)
		client, err := graph.New(cfg.GraphClient(rdb))
		if err != nil {
			if rdb != nil {
				rdb.Close()
			}
			return nil, nil, err
		}
		return client, func() {
			client.Close()
			if rdb != nil {
				rdb.Close()
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", name)
}

// connectRedis returns nil when Redis is not configured or unreachable;
// the fetch then runs without a shared token cache and throttle state.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	opts := cfg.RedisOptions()
	if opts == nil {
		return nil
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, continuing without shared state")
		rdb.Close()
		return nil
	}

	logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
