package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var topNodes int

func init() {
	rootCmd.AddCommand(nodesCmd)

	nodesCmd.AddCommand(nodesSummaryCmd)
	nodesSummaryCmd.Flags().IntVar(&topNodes, "top", 10, "number of healthiest nodes to list")
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "node commands",
}

var nodesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "print the network summary and the healthiest nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, logger, err := getConfigAndLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := context.Background()
		svc := getServices(ctx, cfg, logger)
		defer svc.Close()

		s := svc.engine.GetSummary(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "nodes\t%d (%d online, %d offline)\n", s.TotalNodes, s.OnlineNodes, s.OfflineNodes)
		fmt.Fprintf(w, "online\t%.2f%% (%s)\n", s.OnlinePercentage, s.NetworkHealth)
		fmt.Fprintf(w, "storage\t%d / %d bytes (%.2f%%)\n", s.TotalStorageUsed, s.TotalStorageCommitted, s.StorageUtilization)
		fmt.Fprintf(w, "consensus version\t%s\n", s.ConsensusVersion)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "PUBKEY\tHEALTH\tTIER\tUPTIME24H\tSTORAGE\tVERSION")
		for _, n := range svc.engine.GetTopNodes(ctx, topNodes) {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%.2f\t%.2f%%\t%s\n",
				n.Pubkey, n.HealthScore, n.Tier, n.Uptime24h, n.StorageUtilization, n.Version)
		}
		return w.Flush()
	},
}
