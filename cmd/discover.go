package cmd

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/spf13/cobra"
)

var discoverForMap bool

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().BoolVar(&discoverForMap, "for-map", false, "keep every address announced under the same pubkey")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "run one discovery round and print the nodes as JSON",
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

		var list []nodes.Node
		if discoverForMap {
			list = svc.discovery.GetAllNodesForMap(ctx)
		} else {
			list = svc.discovery.GetAllNodes(ctx)
		}

		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err = enc.Encode(list); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%d nodes\n", len(list))
		return nil
	},
}
