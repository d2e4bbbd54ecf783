package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <data>",
	Short: "Mine a block carrying the data.",
	Args:  cobra.ExactArgs(1),
	RunE:  addRun,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func addRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		Block   database.Block `json:"block"`
		Message string         `json:"message"`
	}

	req := struct {
		Data string `json:"data"`
	}{
		Data: args[0],
	}

	if err := send(http.MethodPost, fmt.Sprintf("%s/v1/blocks", url), req, &resp); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return printJSON(cmd.OutOrStdout(), resp.Block)
}
