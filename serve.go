// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signal18/pricemedian/api"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/report"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	config.InitSourceFlags(serveCmd.Flags())
	config.InitServerFlags(serveCmd.Flags())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve daily medians over HTTP",
	Long: `serve starts the HTTP API. Every request to /api/medians/{symbol} fetches the series
again, subject to the upstream response cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := report.NewBuilder(conf)
		if err != nil {
			return err
		}
		defer builder.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return api.New(conf, builder).Run(ctx)
	},
}
