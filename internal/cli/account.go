package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"govportal/internal/portalclient"
)

func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	var in portalclient.SignupInput
	var address, city, zip string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, "Choose a password: ", passwordStdin)
			if err != nil {
				return err
			}
			in.Password = pw
			in.Address = optional(address)
			in.City = optional(city)
			in.Zip = optional(zip)

			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			u, err := c.Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := saveSession(rootOpts.SessionFile, c.SessionToken()); err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(u, fmt.Sprintf("signed up as %s (%s)", u.Email, u.ID))
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().StringVar(&zip, "zip", "", "zip code")
	for _, name := range []string{"email", "first-name", "last-name", "phone"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, "Password: ", passwordStdin)
			if err != nil {
				return err
			}
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			u, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := saveSession(rootOpts.SessionFile, c.SessionToken()); err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(u, "signed in as "+u.Email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := saveSession(rootOpts.SessionFile, ""); err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(map[string]bool{"ok": true}, "signed out")
		},
	}
}

var errNotSignedIn = errors.New("not signed in: run portalctl login first")

func NewMeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client(cmd)
			if err != nil {
				return err
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			if u == nil {
				return errNotSignedIn
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Print(u,
				fmt.Sprintf("%s <%s>", u.Name, u.Email),
				"phone: "+u.Phone,
			)
		},
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
