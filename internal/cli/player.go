package cli

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player management commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerLoginCmd())
	cmd.AddCommand(newPlayerLogoutCmd())
	cmd.AddCommand(newPlayerMeCmd())
	cmd.AddCommand(newPlayerShowCmd())
	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerUpdateCmd())
	cmd.AddCommand(newPlayerDeleteCmd())

	return cmd
}

func newPlayerRegisterCmd() *cobra.Command {
	var id, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new player account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || pass == "" {
				return fmt.Errorf("--id and --pass are required")
			}

			req := map[string]string{
				"playerId": id,
				"password": pass,
			}
			var result Player

			if err := client.Post(cmd.Context(), "/api/v1/players", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newPlayerLoginCmd() *cobra.Command {
	var id, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || pass == "" {
				return fmt.Errorf("--id and --pass are required")
			}

			req := map[string]string{
				"playerId": id,
				"password": pass,
			}
			var result AuthResult

			if err := client.Post(cmd.Context(), "/api/v1/players/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newPlayerLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			output(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in player's portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Portfolio

			if err := client.Get(cmd.Context(), "/api/v1/players/me", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <player-id>",
		Short: "Show a player's balance and holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Portfolio

			if err := client.Get(cmd.Context(), "/api/v1/players/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerListCmd() *cobra.Command {
	var offset, count int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List players in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Player

			if err := client.Get(cmd.Context(), pagePath("/api/v1/players", offset, count), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Number of players to skip (a record offset, not a page number)")
	cmd.Flags().IntVar(&count, "count", 10, "Number of players to show")

	return cmd
}

func newPlayerUpdateCmd() *cobra.Command {
	var balance string

	cmd := &cobra.Command{
		Use:   "update <player-id>",
		Short: "Set the logged-in player's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("invalid --balance %q: %w", balance, err)
			}

			req := map[string]decimal.Decimal{"balance": amount}
			var result Player

			if err := client.Put(cmd.Context(), "/api/v1/players/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&balance, "balance", "", "New balance (required)")
	_ = cmd.MarkFlagRequired("balance")

	return cmd
}

func newPlayerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <player-id>",
		Short: "Delete the logged-in player and all their holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/players/"+url.PathEscape(args[0])); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Deleted player %s", args[0]))
			return nil
		},
	}
}

// pagePath appends offset and count query parameters to path
func pagePath(path string, offset, count int) string {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("count", fmt.Sprint(count))
	return path + "?" + q.Encode()
}
