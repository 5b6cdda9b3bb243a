package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mossy-p/meet-signaling/config"
)

var (
	flagPort     string
	flagEnv      string
	flagLogLevel string
	flagRedis    bool
)

// rootCmd runs the signaling server
var rootCmd = &cobra.Command{
	Use:   "signaling",
	Short: "WebRTC conference signaling relay",
	Long: `Signaling relays SDP offers, answers and chat between browsers in the
same conference room over WebSocket. Media never passes through it.

Examples:
  signaling
  signaling --port 8080 --env production
  signaling --redis --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := config.Options{
			Port:        flagPort,
			Environment: flagEnv,
			LogLevel:    flagLogLevel,
		}
		if cmd.Flags().Changed("redis") {
			opts.Redis = &flagRedis
		}

		cfg, err := config.Load(opts)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "port to listen on (env PORT, default 3001)")
	rootCmd.Flags().StringVar(&flagEnv, "env", "", "development or production (env ENVIRONMENT)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
	rootCmd.Flags().BoolVar(&flagRedis, "redis", false, "mirror presence into Redis (env REDIS_ENABLED)")
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
