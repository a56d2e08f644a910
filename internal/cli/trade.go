package cli

import (
	"github.com/spf13/cobra"
)

func newTradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Buy and sell stocks as the logged-in player",
	}

	cmd.AddCommand(newTradeSideCmd("buy", "Buy units of a stock"))
	cmd.AddCommand(newTradeSideCmd("sell", "Sell units of a stock"))

	return cmd
}

func newTradeSideCmd(side, short string) *cobra.Command {
	var stockID string
	var quantity int64

	cmd := &cobra.Command{
		Use:   side,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"stockId":  stockID,
				"quantity": quantity,
			}
			var result TradeResult

			if err := client.Post(cmd.Context(), "/api/v1/trades/"+side, req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&stockID, "stock", "", "Stock ID (required)")
	cmd.Flags().Int64Var(&quantity, "qty", 0, "Number of units (required)")
	_ = cmd.MarkFlagRequired("stock")
	_ = cmd.MarkFlagRequired("qty")

	return cmd
}
