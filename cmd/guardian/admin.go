package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"guardian/pkg/guardian"

	"github.com/spf13/cobra"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect a running federation",
		Long:  "Running-phase calls, served once consensus has started",
	}

	cmd.AddCommand(
		rawAdminCmd("version", "Show the guardian's API and module versions", "VERSIONS", func(cmd *cobra.Command, a *app) (json.RawMessage, error) {
			return a.client.Version(cmd.Context())
		}),
		adminEpochCountCmd(),
		rawAdminCmd("federation-status", "Show per-peer consensus status", "FEDERATION STATUS", func(cmd *cobra.Command, a *app) (json.RawMessage, error) {
			return a.client.FederationStatus(cmd.Context())
		}),
		adminInviteCodeCmd(),
		adminConfigCmd(),
		adminAuditCmd(),
		adminModuleCmd(),
	)
	return cmd
}

// rawAdminCmd builds a command that prints an opaque running-phase payload.
func rawAdminCmd(use, short, title string, fetch func(cmd *cobra.Command, a *app) (json.RawMessage, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			raw, err := fetch(cmd, a)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), raw, func() string { return rawPanel(title, "📋", raw) })
		}),
	}
}

func adminEpochCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "epoch-count",
		Short: "Show how many consensus epochs have completed",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			count, err := a.client.FetchEpochCount(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), count, func() string {
				return renderFields([]field{{"Epoch Count", strconv.FormatUint(count, 10), valueStyle}})
			})
		}),
	}
}

func adminInviteCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite-code",
		Short: "Show the code users join the federation with",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			code, err := a.client.InviteCode(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), code, func() string {
				return createPanel("INVITE CODE", "✉", accentValueStyle.Render(code), 0)
			})
		}),
	}
}

func adminConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config <connection>",
		Short: "Fetch the client config for a federation connection string",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			cfg, err := a.client.Config(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), cfg, func() string { return rawPanel("CLIENT CONFIG", "📋", cfg) })
		}),
	}
}

func adminAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show the federation's balance sheet",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			summary, err := a.client.Audit(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), summary, func() string { return renderAudit(summary) })
		}),
	}
}

func adminModuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "module <module-id> <operation>",
		Short: "Call a module API operation, e.g. 'module 2 list_gateways'",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid module id %q: %w", args[0], err)
			}

			var result json.RawMessage
			if err := a.client.ModuleCall(cmd.Context(), uint16(id), guardian.ModuleOp(args[1]), &result); err != nil {
				return err
			}
			method := guardian.ModuleMethod(uint16(id), guardian.ModuleOp(args[1]))
			return output(cmd.OutOrStdout(), result, func() string { return rawPanel(method, "🧩", result) })
		}),
	}
}
