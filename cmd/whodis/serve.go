package main

import (
	"github.com/spf13/cobra"

	"github.com/1ureka/whodis/internal/config"
	"github.com/1ureka/whodis/internal/signaling"
	"github.com/1ureka/whodis/internal/util"
)

func newServeCmd() *cobra.Command {
	var flags config.Server

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the matchmaking and signaling server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(configPath)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Addr = flags.Addr
			}
			if f.Changed("rate-limit") {
				cfg.RateLimit = flags.RateLimit
			}
			if f.Changed("rate-burst") {
				cfg.RateBurst = flags.RateBurst
			}
			if f.Changed("send-buffer") {
				cfg.SendBuffer = flags.SendBuffer
			}
			if f.Changed("stats-interval") {
				cfg.StatsInterval = flags.StatsInterval
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := applyLogLevel(cfg.LogLevel); err != nil {
				return err
			}

			banner()
			ctx := cmd.Context()
			util.StartStatsReporter(ctx, cfg.StatsInterval)
			if err := signaling.NewServer(cfg).ListenAndServe(ctx, cfg.Addr); err != nil {
				return err
			}
			util.LogInfo("server stopped")
			return nil
		},
	}

	def := config.DefaultServer()
	cmd.Flags().StringVar(&flags.Addr, "addr", def.Addr, "listen address")
	cmd.Flags().Float64Var(&flags.RateLimit, "rate-limit", def.RateLimit, "inbound messages per second per connection (0 = unlimited)")
	cmd.Flags().IntVar(&flags.RateBurst, "rate-burst", def.RateBurst, "inbound burst per connection")
	cmd.Flags().IntVar(&flags.SendBuffer, "send-buffer", def.SendBuffer, "outbound queue length per connection")
	cmd.Flags().DurationVar(&flags.StatsInterval, "stats-interval", def.StatsInterval, "how often to log stats (0 = never)")
	return cmd
}
