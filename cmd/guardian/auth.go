package main

import (
	"errors"
	"fmt"

	"guardian/pkg/transport"

	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored admin password",
		Long:  "Check, store and forget the admin password sent with every guardian call",
	}

	cmd.AddCommand(authLoginCmd(), authLogoutCmd(), authWhoamiCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a password against the guardian and store it",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var (
				password string
				err      error
			)
			if passwordStdin {
				password, err = readSecretLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd.ErrOrStderr(), "Admin password: ")
			}
			if err != nil {
				return err
			}

			if !a.client.TestPassword(cmd.Context(), password) {
				return errors.New("password rejected by guardian (or guardian unreachable, see logs)")
			}

			fmt.Fprintln(cmd.OutOrStdout(), successLine("Password accepted and stored"))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored password",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.client.ClearPassword(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Password cleared"))
			return nil
		}),
	}
}

func authWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check whether the stored password is accepted",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if _, ok := a.client.Password(); !ok {
				return errors.New("no password stored, run 'guardian auth login'")
			}

			err := a.client.Auth(cmd.Context())
			var rpcErr *transport.RPCError
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), successLine("Authenticated to "+a.client.Endpoint()))
				return nil
			case errors.As(err, &rpcErr):
				return fmt.Errorf("stored password rejected: %w", err)
			default:
				return err
			}
		}),
	}
}
