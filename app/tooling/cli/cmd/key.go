package cmd

import (
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var keyPath string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the node id for a node key, generating the key if needed.",
	Args:  cobra.NoArgs,
	RunE:  keyRun,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.Flags().StringVarP(&keyPath, "path", "p", "zblock/node.ecdsa", "Path to the node key.")
}

func keyRun(cmd *cobra.Command, args []string) error {
	privateKey, err := signature.LoadOrCreateKey(keyPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), signature.NodeID(privateKey.PublicKey))
	return nil
}
