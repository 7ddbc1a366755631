package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"tripcopilot/config"
)

var logger = xlog.NewPackageLogger("tripcopilot", "main")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.New()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "tripcopilot",
		Short: "Travel Copilot FR - day-by-day trip planner",
		Long: `Travel Copilot plans a multi-city trip in France: a flight estimate,
daily weather, a hotel per night and a simple activity schedule, with a
cost estimate checked against your budget.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(config.FromViper(v))
		},
	}

	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warning, error")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(v), newPlanCmd(v))
	return root
}

func setupLogging(cfg *config.Settings) {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(parseLevel(cfg.LogLevel))
}

func parseLevel(level string) xlog.LogLevel {
	switch level {
	case "debug":
		return xlog.DEBUG
	case "warning", "warn":
		return xlog.WARNING
	case "error":
		return xlog.ERROR
	default:
		return xlog.INFO
	}
}
