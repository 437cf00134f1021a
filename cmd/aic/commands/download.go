package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	aic "github.com/ai-coustics/aic-sdk-go"
	"github.com/ai-coustics/aic-sdk-go/download"
)

var (
	downloadDir     string
	downloadBaseURL string
)

var downloadCmd = &cobra.Command{
	Use:   "download <model-id>",
	Short: "Fetch a model from the distribution service",
	Long: `Download a model container at the version this SDK supports.
Files already present with a matching checksum are not fetched again.

Example:
  aic download quail-l-16khz --dir models`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := download.NewClient()
		if downloadBaseURL != "" {
			client.BaseURL = downloadBaseURL
		}

		path, err := client.Download(ctx, args[0], aic.CompatibleModelVersion(), downloadDir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadDir, "dir", ".", "directory to store the model in")
	downloadCmd.Flags().StringVar(&downloadBaseURL, "base-url", "", "override the distribution service URL")
	rootCmd.AddCommand(downloadCmd)
}
