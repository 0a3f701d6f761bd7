package cli

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func NewDraftCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or edit the application draft",
	}
	cmd.AddCommand(newDraftShowCommand(rootOpts))
	cmd.AddCommand(newDraftSaveCommand(rootOpts))
	return cmd
}

func newDraftShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			d, err := c.LoadDraft(cmd.Context())
			if err != nil {
				return err
			}
			out := rootOpts.formatter(cmd.OutOrStdout())
			if d == nil {
				return out.Print(nil, "no draft")
			}
			lines := append([]string{
				"application: " + d.ApplicationID,
				fmt.Sprintf("current step: %d", d.CurrentStep),
			}, fieldLines(d.Data)...)
			return out.Print(d, lines...)
		},
	}
}

func newDraftSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var step int
	var sets []string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save fields for one step",
		Example: `  portalctl draft save --step 0 --set email=jane@example.gov --set firstName=Jane`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.SaveDraft(cmd.Context(), step, data); err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(map[string]any{"ok": true, "step": step},
				fmt.Sprintf("saved step %d (%d fields)", step, len(data)))
		},
	}
	cmd.Flags().IntVar(&step, "step", 0, "zero-based step index")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field assignment key=value (repeatable)")
	return cmd
}

// parseAssignments turns key=value pairs into form fields. Values stay strings.
func parseAssignments(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: want key=value", pair)
		}
		data[key] = value
	}
	return data, nil
}

func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var applicationID string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the latest draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			appID, err := c.Submit(cmd.Context(), applicationID)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(map[string]any{"ok": true, "applicationId": appID},
				"submitted "+appID)
		},
	}
	cmd.Flags().StringVar(&applicationID, "application-id", "", "submit this application instead of the latest draft")
	return cmd
}

func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	var applicationID, kind, contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a supporting document for a submitted application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if contentType == "" {
				contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
			}
			if contentType == "" {
				return fmt.Errorf("cannot infer content type of %s: pass --content-type", path)
			}
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			doc, err := c.UploadFile(cmd.Context(), applicationID, kind, path, contentType)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(doc,
				fmt.Sprintf("uploaded %s as %s (%s)", doc.FileName, doc.ID, doc.Status))
		},
	}
	cmd.Flags().StringVar(&applicationID, "application-id", "", "application the document belongs to (default: latest submitted)")
	cmd.Flags().StringVar(&kind, "kind", "proof_of_identity", "lease | proof_of_identity | proof_of_residency")
	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type (default: from the file extension)")
	return cmd
}
