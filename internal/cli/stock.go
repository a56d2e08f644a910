package cli

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newStockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Stock catalog commands",
	}

	cmd.AddCommand(newStockListCmd())
	cmd.AddCommand(newStockShowCmd())
	cmd.AddCommand(newStockCreateCmd())
	cmd.AddCommand(newStockUpdateCmd())
	cmd.AddCommand(newStockDeleteCmd())

	return cmd
}

func newStockListCmd() *cobra.Command {
	var offset, count int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listed stocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Stock

			if err := client.Get(cmd.Context(), pagePath("/api/v1/stocks", offset, count), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Number of stocks to skip (a record offset, not a page number)")
	cmd.Flags().IntVar(&count, "count", 10, "Number of stocks to show")

	return cmd
}

func newStockShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <stock-id>",
		Short: "Show a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Stock

			if err := client.Get(cmd.Context(), "/api/v1/stocks/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// stockBody validates the name and price flags
func stockBody(name, price string) (map[string]any, error) {
	if name == "" {
		return nil, fmt.Errorf("--name is required")
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid --price %q: %w", price, err)
	}
	return map[string]any{"name": name, "price": amount}, nil
}

func newStockCreateCmd() *cobra.Command {
	var name, price string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "List a new stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := stockBody(name, price)
			if err != nil {
				return err
			}
			var result Stock

			if err := client.Post(cmd.Context(), "/api/v1/stocks", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Stock name (required)")
	cmd.Flags().StringVar(&price, "price", "", "Unit price (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newStockUpdateCmd() *cobra.Command {
	var name, price string

	cmd := &cobra.Command{
		Use:   "update <stock-id>",
		Short: "Rename or reprice a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := stockBody(name, price)
			if err != nil {
				return err
			}
			var result Stock

			if err := client.Put(cmd.Context(), "/api/v1/stocks/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Stock name (required)")
	cmd.Flags().StringVar(&price, "price", "", "Unit price (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newStockDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <stock-id>",
		Short: "Delist a stock nobody holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/stocks/"+url.PathEscape(args[0])); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Deleted stock %s", args[0]))
			return nil
		},
	}
}
