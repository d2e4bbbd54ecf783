package cmd

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print every block in the chain.",
	Args:  cobra.NoArgs,
	RunE:  chainRun,
}

var blockCmd = &cobra.Command{
	Use:   "block <index>",
	Short: "Print the block at the index.",
	Args:  cobra.ExactArgs(1),
	RunE:  blockRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the chain is valid.",
	Args:  cobra.NoArgs,
	RunE:  validateRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(validateCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		Chain   []database.Block `json:"chain"`
		Length  int              `json:"length"`
		IsValid bool             `json:"is_valid"`
	}

	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/chain", url), nil, &resp); err != nil {
		return err
	}

	for _, block := range resp.Chain {
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %s  %q\n", block.Index, block.Hash, database.FormatTime(block.TimeStamp), block.Data)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "length[%d] valid[%t]\n", resp.Length, resp.IsValid)

	return nil
}

func blockRun(cmd *cobra.Command, args []string) error {
	index, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[0], err)
	}

	var block database.Block
	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/blocks/%d", url, index), nil, &block); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), block)
}

func validateRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		IsValid     bool   `json:"is_valid"`
		ChainLength int    `json:"chain_length"`
		Error       string `json:"error"`
	}

	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/validate", url), nil, &resp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "valid[%t] length[%d]\n", resp.IsValid, resp.ChainLength)
	if resp.Error != "" {
		fmt.Fprintln(cmd.OutOrStdout(), resp.Error)
	}

	return nil
}
