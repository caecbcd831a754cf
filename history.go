// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/signal18/pricemedian/chart"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/report"
)

var historyFrom, historyUntil string

func init() {
	rootCmd.AddCommand(historyCmd)
	config.InitSourceFlags(historyCmd.Flags())
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "First date, YYYY-MM-DD")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Last date, YYYY-MM-DD")
	historyCmd.Flags().StringVar(&outputFormat, "format", chart.FormatTable, "Output format: "+strings.Join(chart.Formats, ", "))
	historyCmd.Flags().StringVar(&outputFile, "output", "", "Write to this file instead of stdout, %s is replaced by the symbol")
}

var historyCmd = &cobra.Command{
	Use:   "history <symbol>",
	Short: "Print the stored daily medians of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := report.NewBuilder(conf)
		if err != nil {
			return err
		}
		defer builder.Close()

		symbol := args[0]
		results, err := builder.History(symbol, historyFrom, historyUntil)
		if err != nil {
			return err
		}
		b, err := chart.Marshal(outputFormat, symbol, results, chartOptions())
		if err != nil {
			return err
		}
		return writeOutput(symbol, b)
	},
}
