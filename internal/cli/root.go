// Package cli implements portalctl, a command line client for the portal API.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"govportal/internal/portalclient"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	BaseURL     string
	SessionFile string
	Format      string // "json" | "text"
	Verbose     bool
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Command line client for the government services portal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.BaseURL, "url", envOr("PORTAL_URL", "http://localhost:8080"), "portal base URL")
	cmd.PersistentFlags().StringVar(&opts.SessionFile, "session-file", defaultSessionFile(), "where the session token is kept between runs")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSignupCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewMeCommand(opts))
	cmd.AddCommand(NewDraftCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewFillCommand(opts))

	return cmd
}

// client builds a portal client that resumes the saved session.
func (o *RootOptions) client(cmd *cobra.Command) (*portalclient.Client, error) {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	token, err := loadSession(o.SessionFile)
	if err != nil {
		return nil, err
	}
	return portalclient.New(o.BaseURL, portalclient.WithLogger(logger), portalclient.WithSessionToken(token))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portalctl-session"
	}
	return filepath.Join(dir, "portalctl", "session")
}
