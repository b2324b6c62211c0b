package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-gateway/internal/api/http"
	"github.com/i474232898/weather-gateway/internal/config"
	"github.com/i474232898/weather-gateway/internal/mcpserver"
	"github.com/i474232898/weather-gateway/internal/tools"
)

var version = "dev"

type rootOptions struct {
	cfg    *config.AppConfig
	logger *zap.Logger
}

func main() {
	opts := &rootOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "weather-gateway",
		Short:         "Weather tools over MCP, HTTP and the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg

			// Production config writes to stderr, which keeps stdout free
			// for the MCP stdio transport and for call output.
			zcfg := zap.NewProductionConfig()
			level, err := zap.ParseAtomicLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid LOG_LEVEL: %w", err)
			}
			zcfg.Level = level
			log, err := zcfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.AddCommand(
		newServeCommand(opts),
		newMCPCommand(opts),
		newCallCommand(opts),
		newToolsCommand(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := buildGateway(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer gw.close()

			if err := gw.prober.Start(); err != nil {
				return fmt.Errorf("failed to start prober: %w", err)
			}

			app := httpapi.NewApp()
			app.Use(logger.New())
			app.Use(recover.New())
			httpapi.RegisterRoutes(app, gw.registry, gw.gatherer)

			errCh := make(chan error, 1)
			go func() {
				opts.logger.Info("http server listening", zap.String("port", opts.cfg.Port))
				errCh <- app.Listen(":" + opts.cfg.Port)
			}()

			ctx, stop := signalAwareContext(cmd.Context())
			defer stop()

			select {
			case err := <-errCh:
				return fmt.Errorf("fiber server stopped: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				opts.logger.Warn("error during shutdown", zap.Error(err))
			}
			return nil
		},
	}
}

func newMCPCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := buildGateway(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer gw.close()

			if err := gw.prober.Start(); err != nil {
				return fmt.Errorf("failed to start prober: %w", err)
			}

			srv, err := mcpserver.New(gw.registry, version, opts.logger)
			if err != nil {
				return err
			}

			ctx, stop := signalAwareContext(cmd.Context())
			defer stop()

			err = srv.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newCallCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-params]",
		Short: "Invoke one tool and print its JSON result",
		Example: `  weather-gateway call search_location '{"query":"Seattle, WA"}'
  weather-gateway call get_forecast '{"latitude":47.6062,"longitude":-122.3321,"days":3}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if len(args) == 2 {
				dec := json.NewDecoder(bytes.NewReader([]byte(args[1])))
				dec.UseNumber()
				if err := dec.Decode(&params); err != nil {
					return fmt.Errorf("params must be a JSON object: %w", err)
				}
			}

			gw, err := buildGateway(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer gw.close()

			ctx, stop := signalAwareContext(cmd.Context())
			defer stop()

			payload, err := gw.registry.Dispatch(ctx, args[0], params)
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, payload, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(out.Bytes())
			return err
		},
	}
}

func newToolsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools enabled by ENABLED_TOOLS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tier := opts.cfg.Tier
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "TOOL\tTIER\tENABLED\tDESCRIPTION\n")
			for _, d := range tools.Catalog() {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", d.Name, d.Tier, tier.Includes(d.Tier), d.Description)
			}
			return w.Flush()
		},
	}
}
