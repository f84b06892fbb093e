package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/whodis/internal/util"
)

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "whodis",
	Short:   "Anonymous one-to-one video and text chat over WebRTC",
	Long:    `WhoDis pairs strangers by shared interests and connects them peer-to-peer. The server only does matchmaking and relays the WebRTC handshake; media never passes through it.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.AddCommand(newServeCmd(), newJoinCmd())
}

// Execute runs the root command. It is called once by main.
func Execute() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		stop()
		os.Exit(1)
	}
}

// applyLogLevel picks the flag over the configured level.
func applyLogLevel(configured string) error {
	name := configured
	if logLevel != "" {
		name = logLevel
	}
	level, err := util.ParseLevel(name)
	if err != nil {
		return err
	}
	util.SetLevel(level)
	return nil
}

func banner() {
	pterm.Info.Printfln("WhoDis — v%s", version)
	pterm.Println()
}
