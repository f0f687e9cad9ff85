package main

import (
	"fmt"
	"os"

	"github.com/next-exp/oaevent_go/pkg/config"
	"github.com/next-exp/oaevent_go/pkg/geofile"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"github.com/next-exp/oaevent_go/pkg/oadb"
	"github.com/spf13/cobra"
)

var (
	configFilename string
	configuration  = config.Default()
)

func init() {
	logger.SetLogger(logger.NewSlogLogger(os.Stdout, os.Stderr))

	rootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file path")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(importCmd)
}

var rootCmd = &cobra.Command{
	Use:           "geomtool",
	Short:         "Inspect and build ND280 geometry files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFilename == "" {
			return nil
		}
		var err error
		configuration, err = config.LoadConfiguration(configFilename)
		if err != nil {
			return fmt.Errorf("error reading configuration file: %w", err)
		}
		config.SetConfiguration(configuration)
		logger.SetVerbosity(configuration.Verbosity)
		if configuration.Verbosity > 0 {
			logger.Info("Reading configuration file: "+configFilename, "main")
			config.PrintConfiguration(configuration)
		}
		return nil
	},
}

// openGeometryFile opens HDF5 geometry files for the geometry manager.
func openGeometryFile(path string) (geommanager.Container, error) {
	f, err := geofile.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// newDatabase builds the session database, connected to the run database
// when the configuration asks for it.
func newDatabase() (*oadb.Database, error) {
	opts := []oadb.Option{oadb.WithOpener(openGeometryFile)}
	if configuration.UseDB {
		db, err := oadb.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		opts = append(opts, oadb.WithDB(db))
	}
	return oadb.New(configuration, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
