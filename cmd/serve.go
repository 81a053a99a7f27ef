package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/sheetviz/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveFile  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard in the browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveWatch && serveFile == "" {
			return fmt.Errorf("--watch requires --file")
		}
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") || addr == "" {
			addr = serveAddr
		}

		ctrl := dashboard.NewController(dashboard.Config{
			Table:  tableOptions(),
			Render: renderOptions(),
			Logger: logger,
		})
		srvCfg := dashboard.ServerConfig{
			Addr:           addr,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			SessionSecret:  cfg.Secret(),
			Logger:         logger,
		}
		if serveWatch {
			srvCfg.WatchFile = serveFile
		}
		srv := dashboard.NewServer(ctrl, srvCfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveFile != "" {
			if err := srv.LoadFile(ctx, serveFile); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
			} else {
				fmt.Printf("✓ Loaded %s\n", serveFile)
			}
		}
		fmt.Printf("✓ Dashboard listening on %s\n", addr)
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveFile, "file", "", "workbook to load at startup")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload --file when it changes on disk")
}
