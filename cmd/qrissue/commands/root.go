package commands

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultAPI = "http://localhost:5000"

// NewRootCmd builds the qrissue command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qrissue",
		Short: "Issue QR attendance credentials",
		Long: `qrissue renders QR credentials for registered users and stores them
through the attendance API.

Each credential encodes {"username","email","issuedAt"} as a high error
correction QR code. The image is sent as a PNG data URL, or uploaded to
Cloudinary when CLOUDINARY_* is configured and --upload is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	api := os.Getenv("QRISSUE_API")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().String("api", api, "Attendance API base URL (env QRISSUE_API)")

	root.AddCommand(newRenderCmd(), newIssueCmd())
	return root
}

// Execute runs the CLI. It is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}
