package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/api/v1"
	"github.com/pnode-analytics/pnodelogger/database/snapshots"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, logger, err := getConfigAndLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		/*------*/

		svc := getServices(ctx, cfg, logger)
		defer svc.Close()

		/*------*/

		deps := api.Deps{
			Nodes:     svc.discovery,
			Stats:     svc.fetcher,
			Analytics: svc.engine,
			Geo:       svc.geo,
			Gatherer:  svc.registry,
		}

		if cfg.HistoryEnabled() {
			db := getDatabase(cfg, logger)

			history := snapshots.New(db, logger)
			if err := history.InsertQueue.Start(); err != nil {
				return err
			}
			defer history.InsertQueue.Stop()

			svc.engine.SetOnMetricsCallBack(func(list []nodes.Node, metrics []analytics.NodeMetrics) {

				byPubkey := make(map[string]analytics.NodeMetrics, len(metrics))
				for _, m := range metrics {
					byPubkey[m.Pubkey] = m
				}
				for _, n := range list {
					history.InsertQueue.Add(snapshots.FromNode(n, byPubkey[n.Pubkey]))
				}
				logger.Debug(fmt.Sprintf("%d snapshots queued", len(list)))
			})

			deps.History = history
		} else {
			logger.Info("`POSTGRES_HOST` is empty, node history is disabled")
		}

		/*------*/

		svc.job.Start(ctx)

		/*------*/

		restApi := api.NewRESTApiV1(deps, uint64(cfg.APIRowsPerPage), logger)

		if err := restApi.Serve(ctx, cfg.RESTAPIAddress, cfg.OriginAllowed); err != nil {
			logger.Error(fmt.Sprintf("REST API server: %v", err))
			return err
		}
		logger.Info("shutting down")
		return nil
	},
}
