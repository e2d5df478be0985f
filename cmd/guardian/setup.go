package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Walk a new federation through config generation",
		Long: `Setup-phase calls. They are only served before consensus starts; the
usual order is set-password, connections, set-params, run-dkg,
verify-hash, verified-configs and start-consensus.`,
	}

	cmd.AddCommand(
		setupSetPasswordCmd(),
		setupConnectionsCmd(),
		setupDefaultParamsCmd(),
		setupConsensusParamsCmd(),
		setupSetParamsCmd(),
		setupVerifyHashCmd(),
		setupRunDKGCmd(),
		setupVerifiedConfigsCmd(),
		setupStartConsensusCmd(),
	)
	return cmd
}

func setupSetPasswordCmd() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set the guardian's admin password",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var (
				password string
				err      error
			)
			if passwordStdin {
				password, err = readSecretLine(cmd.InOrStdin())
			} else {
				password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			if err := a.client.SetPassword(cmd.Context(), password); err != nil {
				return fmt.Errorf("failed to set password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Admin password set"))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func setupConnectionsCmd() *cobra.Command {
	var (
		name   string
		leader string
	)

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Name this guardian and, for followers, point it at the leader",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			if err := a.client.SetConfigGenConnections(cmd.Context(), name, leader); err != nil {
				return err
			}

			role := "leader"
			if leader != "" {
				role = "follower of " + leader
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine(fmt.Sprintf("Guardian %q registered as %s", name, role)))
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "this guardian's name")
	cmd.Flags().StringVar(&leader, "leader", "", "leader's API URL (omit on the leader)")
	return cmd
}

func setupDefaultParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default-params",
		Short: "Show the default config generation parameters",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			params, err := a.client.DefaultConfigGenParams(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), params, func() string {
				return rawPanel("DEFAULT CONFIG GEN PARAMS", "⚙", params)
			})
		}),
	}
}

func setupConsensusParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consensus-params",
		Short: "Show the parameters the peers have agreed on so far",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			state, err := a.client.ConsensusConfigGenParams(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), state, func() string {
				return rawPanel("CONSENSUS CONFIG GEN PARAMS", "⚙", state)
			})
		}),
	}
}

func setupSetParamsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set-params",
		Short: "Submit config generation parameters from a JSON file",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			params, err := readJSONFile(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if err := a.client.SetConfigGenParams(cmd.Context(), params); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Config generation parameters submitted"))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON parameters file, - for stdin")
	return cmd
}

// readJSONFile reads a JSON document from path, or from stdin when path is -.
func readJSONFile(stdin io.Reader, path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("parameters in %s are not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func setupVerifyHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-hash",
		Short: "Show each peer's generated config hash",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			hashes, err := a.client.VerifyConfigHash(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), hashes, func() string { return renderPeerHashes(hashes) })
		}),
	}
}

func setupRunDKGCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-dkg",
		Short: "Run distributed key generation (may take hours)",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Running distributed key generation, this can take a while..."))
			if err := a.client.RunDKG(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Key generation complete"))
			return nil
		}),
	}
}

func setupVerifiedConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verified-configs",
		Short: "Confirm the peers' config hashes were checked",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.client.VerifiedConfigs(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Configs marked verified"))
			return nil
		}),
	}
}

func setupStartConsensusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-consensus",
		Short: "Start consensus and wait until the guardian reports it running",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("Starting consensus, the guardian will restart..."))
			if err := a.client.StartConsensus(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successLine("Consensus running"))
			return nil
		}),
	}
}
