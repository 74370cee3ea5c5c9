package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/logging"
	"github.com/jerometseng/requestlog/internal/netinfo"
	"github.com/jerometseng/requestlog/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo HTTP server with request logging and envelopes",
	Long: `Serve starts an HTTP server whose routes are wrapped by the request-log,
rate-limit and result-envelope middlewares.

Routes:
  GET /health            plain health check (not logged)
  GET /api/hello?name=   text response, wrapped in a result
  GET /api/echo          echoes query parameters
  GET /api/request-id    returns the request ID seen by the handler
  GET /api/raw           raw JSON, never wrapped
  GET /v3/api-docs       OpenAPI document (documentation resource)
  GET /swagger-ui.html   documentation UI (documentation resource)
  GET /doc.html          documentation UI at the configured docs.path
  GET /robots.txt        disallows crawling of documentation resources

Example:
  requestlog serve --addr :9090
  requestlog serve --log-format json --rate-limit`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("context-path", "", "path prefix stripped before routing")
	serveCmd.Flags().Int("max-conns", 0, "maximum concurrent connections (0 = unlimited)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-format", "text", "log format (text, json)")
	serveCmd.Flags().Bool("rate-limit", false, "enable per-client rate limiting")
	serveCmd.Flags().Bool("no-banner", false, "do not print the startup banner")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.context_path", serveCmd.Flags().Lookup("context-path"))
	_ = viper.BindPFlag("server.max_conns", serveCmd.Flags().Lookup("max-conns"))
	_ = viper.BindPFlag("log.level", serveCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", serveCmd.Flags().Lookup("log-format"))
	_ = viper.BindPFlag("rate_limit.enabled", serveCmd.Flags().Lookup("rate-limit"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	if noBanner, _ := cmd.Flags().GetBool("no-banner"); !noBanner {
		netinfo.Banner(cmd.OutOrStdout(), cfg)
	}

	if viper.ConfigFileUsed() != "" {
		watchMarkers(srv, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}

// watchMarkers reloads docs.markers whenever the config file changes
func watchMarkers(srv *server.Server, logger *slog.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if _, err := reloadMarkers(srv, viper.GetStringSlice("docs.markers")); err != nil {
			logger.Warn("ignoring invalid docs.markers", slog.String("file", e.Name), slog.String("error", err.Error()))
		}
	})
	viper.WatchConfig()
}

// reloadMarkers swaps in markers unless they normalize to the set already in use
func reloadMarkers(srv *server.Server, markers []string) (bool, error) {
	next, err := docpath.New(markers)
	if err != nil {
		return false, err
	}
	if slices.Equal(next.Markers(), srv.Classifier().Classifier().Markers()) {
		return false, nil
	}
	if err := srv.UpdateMarkers(markers); err != nil {
		return false, err
	}
	return true, nil
}
