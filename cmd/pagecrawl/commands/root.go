package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/fetcher"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "pagecrawl",
	Short: "pagecrawl scrapes paginated HTML listings into CSV files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(cfg.Log, cmd.ErrOrStderr())
	},
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Fetch))
}

// initLogger configures slog based on the LogConfig.
func initLogger(lc config.LogConfig, w io.Writer) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
