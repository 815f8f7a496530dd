package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qrattend/internal/apiclient"
	"qrattend/internal/cloudinary"
	"qrattend/internal/config"
	"qrattend/internal/qr"
)

// uploader hosts rendered images; *cloudinary.Client implements it.
type uploader interface {
	UploadPNG(ctx context.Context, png []byte, publicID string) (*cloudinary.UploadResult, error)
}

// newUploader is swapped in tests.
var newUploader = func() (uploader, error) {
	cfg := config.Load()
	if !cfg.CloudinaryEnabled() {
		return nil, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET must be set")
	}
	return cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
}

type issueOptions struct {
	token      string
	loginUser  string
	loginEmail string
	all        bool
	upload     bool
	timeout    time.Duration
}

func newIssueCmd() *cobra.Command {
	opts := issueOptions{token: os.Getenv("QRISSUE_TOKEN")}
	cmd := &cobra.Command{
		Use:   "issue [USERNAME EMAIL]",
		Short: "Render and store QR credentials through the API",
		Long: `Render a credential for one user, or with --all for every registered user,
and store it with POST /api/generate-qr.

A session token is taken from --token (env QRISSUE_TOKEN) or obtained by
logging in with --login-user and --login-email. Failures for one user are
reported and the rest are still issued.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.all && len(args) != 0 {
				return errors.New("--all takes no arguments")
			}
			if !opts.all && len(args) != 2 {
				return errors.New("expected USERNAME EMAIL or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.token, "token", opts.token, "Bearer token (env QRISSUE_TOKEN)")
	cmd.Flags().StringVar(&opts.loginUser, "login-user", "", "Username to log in with when no token is given")
	cmd.Flags().StringVar(&opts.loginEmail, "login-email", "", "Email to log in with when no token is given")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Issue for every user in the API's user directory")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload images to Cloudinary and store the hosted URL")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Overall time limit")
	return cmd
}

func runIssue(cmd *cobra.Command, opts issueOptions, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	base, _ := cmd.Flags().GetString("api")
	client := apiclient.New(base, opts.token)
	if client.Token == "" {
		if opts.loginUser == "" || opts.loginEmail == "" {
			return fail(errOut, "No session token", errors.New("pass --token or --login-user with --login-email"))
		}
		if _, err := client.Login(ctx, opts.loginUser, opts.loginEmail); err != nil {
			return fail(errOut, "Login failed", err)
		}
	}

	var up uploader
	if opts.upload {
		u, err := newUploader()
		if err != nil {
			return fail(errOut, "Cloudinary not configured", err)
		}
		up = u
	}

	var targets []apiclient.Contact
	if !opts.all {
		targets = []apiclient.Contact{{Username: args[0], Email: args[1]}}
	} else {
		contacts, err := client.UserEmails(ctx)
		if err != nil {
			return fail(errOut, "Could not list users", err)
		}
		if len(contacts) == 0 {
			warn(out, "no registered users")
			return nil
		}
		targets = contacts
	}

	failed := 0
	for _, t := range targets {
		if err := issueOne(ctx, client, up, t); err != nil {
			failed++
			warn(errOut, "%s: %v", t.Username, err)
			continue
		}
		success(out, "QR code stored for %s", t.Username)
	}
	if failed > 0 {
		return fail(errOut, fmt.Sprintf("%d of %d credentials failed", failed, len(targets)), nil)
	}
	return nil
}

func issueOne(ctx context.Context, client *apiclient.Client, up uploader, t apiclient.Contact) error {
	png, err := renderCredential(t.Username, t.Email, time.Now())
	if err != nil {
		return err
	}
	data := qr.DataURL(png)
	if up != nil {
		res, err := up.UploadPNG(ctx, png, t.Username)
		if err != nil {
			return err
		}
		data = res.SecureURL
	}
	return client.IssueQR(ctx, t.Username, t.Email, data)
}
