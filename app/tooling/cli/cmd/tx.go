package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx <data>",
	Short: "Submit data to the mempool to be mined by the node.",
	Args:  cobra.ExactArgs(1),
	RunE:  txRun,
}

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "Print the transactions waiting to be mined.",
	Args:  cobra.NoArgs,
	RunE:  mempoolRun,
}

func init() {
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(mempoolCmd)
}

func txRun(cmd *cobra.Command, args []string) error {
	req := struct {
		Data string `json:"data"`
	}{
		Data: args[0],
	}

	var tx database.Transaction
	if err := send(http.MethodPost, fmt.Sprintf("%s/v1/tx", url), req, &tx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), tx.TxID)
	return nil
}

func mempoolRun(cmd *cobra.Command, args []string) error {
	var txs []database.Transaction
	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/tx/list", url), nil, &txs); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), txs)
}
