package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qrattend/internal/qr"
)

func newRenderCmd() *cobra.Command {
	var (
		out     string
		dataURL bool
	)
	cmd := &cobra.Command{
		Use:   "render USERNAME EMAIL",
		Short: "Render a credential QR code to a PNG file without calling the API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := renderCredential(args[0], args[1], time.Now())
			if err != nil {
				return fail(cmd.ErrOrStderr(), "Render failed", err)
			}
			if dataURL {
				fmt.Fprintln(cmd.OutOrStdout(), qr.DataURL(png))
				return nil
			}
			if out == "" {
				out = args[0] + ".png"
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fail(cmd.ErrOrStderr(), "Write failed", err)
			}
			success(cmd.OutOrStdout(), "wrote %s (%d bytes)", out, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "PNG file to write (default USERNAME.png)")
	cmd.Flags().BoolVar(&dataURL, "data-url", false, "Print a data:image/png;base64 URL instead of writing a file")
	return cmd
}

func renderCredential(username, email string, now time.Time) ([]byte, error) {
	content, err := qr.NewPayload(username, email, now).Encode()
	if err != nil {
		return nil, err
	}
	return qr.Render(content)
}
