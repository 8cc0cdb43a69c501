package cmd

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/melbahja/got"
	"github.com/oklog/ulid"
	"github.com/spf13/cobra"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/rule"
	"github.com/yeisme/chunkvault/pkg/uploader"
)

var (
	clientServer      string
	clientUser        string
	clientConcurrency int
	uploadFileID      string
	downloadOutput    string

	uploadCmd = &cobra.Command{
		Use:   "upload <file>",
		Short: "upload a local file through the coordinator",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}

	statusCmd = &cobra.Command{
		Use:   "status <file_id>",
		Short: "print the upload status of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			st, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := st.File

			size := "-"
			if f.Size != nil {
				size = units.HumanSize(float64(*f.Size))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s\n", f.FileID, f.Status, size, f.ObjectKey)
			fmt.Fprintf(cmd.OutOrStdout(), "parts recorded: %d/%d\n", st.Chunks.Completed, st.Chunks.Total)

			return nil
		},
	}

	downloadCmd = &cobra.Command{
		Use:   "download <s3_key>",
		Short: "download an uploaded object through a presigned url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			url, err := client.DownloadURL(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get download url: %w", err)
			}

			dest := downloadOutput
			if dest == "" {
				dest = filepath.Base(args[0])
			}

			g := got.New()
			g.Client = client.HTTPClient()

			if err := g.Do(got.NewDownload(ctx, url, dest)); err != nil {
				return fmt.Errorf("download: %w", err)
			}

			if info, err := os.Stat(dest); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", dest, units.HumanSizeWithPrecision(float64(info.Size()), 3))
			}

			return nil
		},
	}
)

// newAPIClient 用命令行参数覆盖 client.* 配置.
func newAPIClient() (*uploader.APIClient, configs.ClientConfig, error) {
	cfg := configs.GetConfig().Client

	if clientServer != "" {
		cfg.ServerURL = clientServer
	}

	if clientUser != "" {
		cfg.User = clientUser
	}

	if clientConcurrency > 0 {
		cfg.Concurrency = clientConcurrency
	}

	if err := rule.ValidateStruct(cfg); err != nil {
		return nil, cfg, fmt.Errorf("invalid client config: %w", err)
	}

	return uploader.NewAPIClient(cfg), cfg, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, cfg, err := newAPIClient()
	if err != nil {
		return err
	}

	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	fileID := uploadFileID
	if fileID == "" {
		fileID = ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(crand.Reader, 0)).String()
	}

	out := cmd.OutOrStdout()
	total := units.HumanSize(float64(info.Size()))

	u := uploader.New(client, uploader.File{
		ID:       fileID,
		Name:     filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Size:     info.Size(),
		Reader:   f,
	}, uploader.Options{
		Concurrency: cfg.Concurrency,
		HTTPClient:  client.HTTPClient(),
		OnProgress: func(p uploader.Progress) {
			fmt.Fprintf(out, "\r%3d%%  %d/%d parts  %s", p.Percent, p.Completed, p.Total, total)
		},
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-sigs:
			fmt.Fprintln(out, "\ncancelling upload...")
			u.Cancel()
		case <-done:
		}
	}()

	fmt.Fprintf(out, "uploading %s (%s) as %s\n", path, total, fileID)

	err = u.Run(cmd.Context())
	fmt.Fprintln(out)

	switch {
	case err == nil:
		fmt.Fprintf(out, "done: %s\n", fileID)

		return nil
	case errors.Is(err, uploader.ErrCancelled):
		fmt.Fprintf(out, "cancelled: %s\n", fileID)

		return err
	default:
		return fmt.Errorf("upload %s: %w", fileID, err)
	}
}

// registerUploadCommands 注册客户端命令.
func registerUploadCommands() {
	for _, c := range []*cobra.Command{uploadCmd, statusCmd, downloadCmd} {
		c.Flags().StringVar(&clientServer, "server", "", "coordinator base url (default client.server_url)")
		c.Flags().StringVar(&clientUser, "user", "", "identity sent as X-User")
		rootCmd.AddCommand(c)
	}

	uploadCmd.Flags().IntVarP(&clientConcurrency, "concurrency", "k", 0, "parts uploaded per batch (default client.concurrency)")
	uploadCmd.Flags().StringVar(&uploadFileID, "file-id", "", "file id to use (default: new ULID)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "destination path (default: base name of the key)")
}
