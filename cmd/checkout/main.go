package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/config"
)

var Version = "dev"

type globals struct {
	configFile string
	envFile    string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "checkout",
		Short:   "Car rental checkout orchestrator",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile, g.envFile)
			if err != nil {
				return err
			}
			g.cfg = cfg
			g.logger = cfg.Log.NewLogger()
			slog.SetDefault(g.logger)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file to load")

	rootCmd.AddCommand(runCmd(g))
	rootCmd.AddCommand(sandboxCmd(g))
	rootCmd.AddCommand(demoCmd(g))
	rootCmd.AddCommand(locationsCmd(g))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func locationsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List pickup and dropoff locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(g.cfg, g.logger)
			for _, l := range client.Locations(cmd.Context()) {
				if l.ID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.ID, l.Name)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), l.Name)
				}
			}
			return nil
		},
	}
}
