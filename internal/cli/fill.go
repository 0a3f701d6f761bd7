package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"govportal/internal/autosave"
	"govportal/internal/portalclient"
)

// FillScript drives a whole application from one YAML file.
type FillScript struct {
	Signup *portalclient.SignupInput `yaml:"signup"`
	Login  *struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"login"`
	Resume bool         `yaml:"resume"`
	Steps  []ScriptStep `yaml:"steps"`
	Submit bool         `yaml:"submit"`
}

type ScriptStep struct {
	Step   int            `yaml:"step"`
	Fields map[string]any `yaml:"fields"`
}

func ParseFillScript(r io.Reader) (*FillScript, error) {
	var script FillScript
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("parsing fill script: %w", err)
	}
	if script.Signup != nil && script.Login != nil {
		return nil, fmt.Errorf("fill script: signup and login are mutually exclusive")
	}
	for i, s := range script.Steps {
		if s.Step < 0 {
			return nil, fmt.Errorf("fill script: steps[%d] has negative step %d", i, s.Step)
		}
	}
	return &script, nil
}

func NewFillCommand(rootOpts *RootOptions) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "fill <script.yaml>",
		Short: "Fill the application form from a YAML script, autosaving as it goes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			script, err := ParseFillScript(f)
			if err != nil {
				return err
			}
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			return runFill(cmd.Context(), rootOpts, c, script, delay, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&delay, "debounce", autosave.DefaultDelay, "autosave debounce between edits")
	return cmd
}

func runFill(ctx context.Context, opts *RootOptions, c *portalclient.Client, script *FillScript, delay time.Duration, w io.Writer) error {
	out := opts.formatter(w)
	var log []string

	switch {
	case script.Signup != nil:
		if _, err := c.Signup(ctx, *script.Signup); err != nil {
			return err
		}
		log = append(log, "signed up as "+script.Signup.Email)
	case script.Login != nil:
		if _, err := c.Login(ctx, script.Login.Email, script.Login.Password); err != nil {
			return err
		}
		log = append(log, "signed in as "+script.Login.Email)
	}
	if err := saveSession(opts.SessionFile, c.SessionToken()); err != nil {
		return err
	}

	form := autosave.New(c, c, autosave.WithDelay(delay))
	if script.Resume {
		offer, err := form.Restore(ctx)
		if err != nil {
			return err
		}
		if offer != nil {
			offer.Accept()
			log = append(log, fmt.Sprintf("resumed draft %s at step %d", offer.Draft.ApplicationID, offer.Draft.CurrentStep))
		}
	}

	for _, s := range script.Steps {
		if err := form.GoTo(ctx, s.Step); err != nil {
			return err
		}
		form.SetFields(s.Fields)
		if err := form.Flush(ctx); err != nil {
			return err
		}
		log = append(log, fmt.Sprintf("saved step %d (%d fields)", s.Step, len(s.Fields)))
	}
	if err := form.Close(ctx); err != nil {
		return err
	}

	result := map[string]any{"ok": true}
	if script.Submit {
		appID, err := c.Submit(ctx, "")
		if err != nil {
			return err
		}
		result["applicationId"] = appID
		log = append(log, "submitted "+appID)
	}
	return out.Print(result, log...)
}
