// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package main

import (
	"context"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signal18/pricemedian/chart"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/report"
)

var (
	outputFormat string
	outputFile   string
)

func init() {
	rootCmd.AddCommand(computeCmd)
	config.InitSourceFlags(computeCmd.Flags())
	computeCmd.Flags().StringVar(&outputFormat, "format", chart.FormatTable, "Output format: "+strings.Join(chart.Formats, ", "))
	computeCmd.Flags().StringVar(&outputFile, "output", "", "Write to this file instead of stdout, %s is replaced by the symbol")
}

var computeCmd = &cobra.Command{
	Use:   "compute [symbol...]",
	Short: "Compute the daily medians of one or more symbols",
	Long: `compute fetches the intraday series of every symbol given, or of the configured
default symbol, and prints the median closing price of each calendar date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		symbols := args
		if len(symbols) == 0 {
			symbols = []string{conf.Symbol}
		}
		if len(symbols) > 1 && outputFile != "" && !strings.Contains(outputFile, "%s") {
			return errors.NotValidf("output %q for %d symbols without %%s", outputFile, len(symbols))
		}

		builder, err := report.NewBuilder(conf)
		if err != nil {
			return err
		}
		defer builder.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		for _, symbol := range symbols {
			rep, err := builder.Build(ctx, symbol)
			if err != nil {
				return err
			}
			b, err := chart.Marshal(outputFormat, symbol, rep.Results, chartOptions())
			if err != nil {
				return err
			}
			if err := writeOutput(symbol, b); err != nil {
				return err
			}
		}
		return nil
	},
}

func chartOptions() chart.Options {
	return chart.Options{
		Width:  conf.ChartWidth,
		Height: conf.ChartHeight,
		Title:  conf.ChartTitle,
		Color:  conf.ChartColor,
	}
}

func writeOutput(symbol string, b []byte) error {
	if outputFile == "" {
		_, err := os.Stdout.Write(b)
		return errors.Trace(err)
	}
	path := strings.Replace(outputFile, "%s", symbol, -1)
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return errors.Trace(err)
	}
	log.WithFields(log.Fields{"symbol": symbol, "file": path}).Info("Wrote medians")
	return nil
}
