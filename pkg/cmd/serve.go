package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/chunkvault/pkg/app"
	"github.com/yeisme/chunkvault/pkg/configs"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP coordinator (and the reconciler when enabled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app.ModeServe)
		},
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "run only the reconciler and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app.ModeWorker)
		},
	}
)

func run(cmd *cobra.Command, mode app.Mode) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, configs.GetConfig(), mode)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}

// registerServeCommands 注册服务端命令.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
}
