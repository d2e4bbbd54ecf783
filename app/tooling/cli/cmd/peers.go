package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/ardanlabs/minichain/app/services/node/handlers/v1/public"
	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Print the peers registered with the node.",
	Args:  cobra.NoArgs,
	RunE:  peersRun,
}

func init() {
	rootCmd.AddCommand(peersCmd)
}

func peersRun(cmd *cobra.Command, args []string) error {
	var peers []public.PeerInfo
	if err := send(http.MethodGet, fmt.Sprintf("%s/v1/peers", url), nil, &peers); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tSTATE\tHEIGHT\tLATENCY")
	for _, p := range peers {
		latency := "-"
		if p.LatencyMS != nil {
			latency = fmt.Sprintf("%dms", *p.LatencyMS)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Address, p.State, p.StartHeight, latency)
	}

	return tw.Flush()
}
