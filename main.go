// pricemedian - Daily median of intraday price series
// Copyright 2017-2021 SIGNAL18 CLOUD SAS
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.
// Redistribution/Reuse of this code is permitted under the GNU v3 license, as
// an additional term, ALL code must carry the original Author(s) credit in comment form.
// See LICENSE in this directory for the integral text.

package main

import (
	"fmt"
	"os"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signal18/pricemedian/api"
	"github.com/signal18/pricemedian/config"
)

var (
	// Version is the semantic version number, e.g. 1.0.1
	Version string = "0.1.0"
	// FullVersion is the semantic version number + git commit hash
	FullVersion string
	// Build is the build date of pricemedian
	Build string
	conf  config.Config
)

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default is pricemedian.toml in . or /etc/pricemedian/)")
	config.InitLogFlags(rootCmd.PersistentFlags())

	api.BuildVersion = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pricemedian",
	Short: "Daily median of intraday stock prices",
	Long: `pricemedian fetches intraday closing prices of a stock, groups them by calendar date
and reduces every date to its median with a streaming two heap estimator. Results can be
printed, charted, stored in a local history and published to carbon.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Usage()
	},
}

// loadConfig merges the flags of the running command, the environment and
// the configuration file into conf, then sets up logging.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Trace(err)
	}
	var err error
	conf, err = config.Load(v)
	if err != nil {
		return err
	}
	return config.SetupLogging(conf)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pricemedian version number",
	Long:  `All software has versions. This is ours`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pricemedian " + Version)
		fmt.Println("Full Version: ", FullVersion)
		fmt.Println("Build Time: ", Build)
	},
}
