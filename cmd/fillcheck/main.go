// Command fillcheck labels trading-signal events against the tick tape and
// validates candidate strategies across train, validate and forward windows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/fillcheck/internal/adapters/http/api"
	"github.com/okian/fillcheck/internal/adapters/http/swagger"
	service "github.com/okian/fillcheck/internal/app"
	"github.com/okian/fillcheck/internal/config"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the persistent flags and the state shared by subcommands.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	output     string
	workers    int
	notional   float64
	takerBps   float64
	hold       bool

	cfg *config.Config
	log logger.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "fillcheck",
		Short: "Execution-reality labeling and multi-phase candidate validation",
		Long: `fillcheck labels detected market events with what a taker or maker
would actually have realized, judges (type, side) candidates and keeps only
those that survive a validate window and a forward window.

Configuration layers: defaults, then --config (or FILLCHECK_CONFIG), then
FILLCHECK_* environment variables, then command-line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&c.output, "output", "./artifacts", "Artifact root directory")
	pf.IntVar(&c.workers, "workers", 0, "Labeling worker count")
	pf.Float64Var(&c.notional, "notional", 1000, "Fixed position notional in USD")
	pf.Float64Var(&c.takerBps, "taker-bps", 5, "Per-side taker fee in basis points")
	pf.BoolVar(&c.hold, "hold", false, "Keep the status HTTP server up after the command until interrupted")

	root.AddCommand(
		c.validateCmd(),
		c.phaseCmd(),
		c.sweepCmd(),
		c.shadowCmd(),
		c.genCmd(),
	)
	return root
}

// setup initializes logging and loads configuration, letting explicitly set
// flags override the file and environment layers.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := logger.InitWithWriter(c.stderr); err != nil {
		return err
	}
	path := c.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("output") {
		cfg.OutputDir = c.output
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = c.workers
	}
	if flags.Changed("notional") {
		cfg.NotionalUSD = c.notional
	}
	if flags.Changed("taker-bps") {
		cfg.TakerBps = c.takerBps
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	c.cfg = cfg
	c.log = logger.Get().Named("cli")
	return nil
}

// withService wires a service, serves the status API when an address is
// configured, and runs fn against the service.
func (c *cli) withService(ctx context.Context, fn func(context.Context, *service.Service) error) error {
	svc, err := service.New(c.cfg)
	if err != nil {
		return err
	}
	if c.cfg.Addr == "" {
		return fn(ctx, svc)
	}

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc).Register(mux)
	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		c.log.Info(ctx, "starting HTTP server", logger.String("addr", c.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}()

	runErr := fn(ctx, svc)
	if c.hold {
		c.log.Info(ctx, "holding status server until interrupted")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	return runErr
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
