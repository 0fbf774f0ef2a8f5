// Package cmd is for command line interaction with the Read Manager
// demonstration tool.
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattwherlock/octopus/config"
	"github.com/mattwherlock/octopus/readmanager"
)

var (
	configFile    string
	flagFilePaths []string
	flagMaxOpen   int
)

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:     "octopus-readmanager",
	Short:   "Query a bounded set of aligned-read files by region and sample",
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main and only needs to run once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "settings file (YAML) with file_paths and max_open_files")
	rootCmd.PersistentFlags().StringSliceVar(&flagFilePaths, "file-paths", nil, "aligned-read files to manage (overrides the config file)")
	rootCmd.PersistentFlags().IntVar(&flagMaxOpen, "max-open-files", 0, "cap on simultaneously open file handles (overrides the config file; 0 uses the manager's default)")

	// OCTOPUS_MAX_OPEN_FILES lets a deployment raise or lower the open
	// file cap without touching the settings file or the command line.
	viper.SetEnvPrefix("octopus")
	viper.BindEnv("max_open_files")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(countCmd)
}

// loadConfig reads the --config YAML file if given, then applies
// OCTOPUS_MAX_OPEN_FILES and any explicitly set flags on top of it, in
// that order, so a flag always wins over the environment, which always
// wins over the settings file.
func loadConfig(cmd *cobra.Command) (config.ReadManagerConfig, error) {
	var cfg config.ReadManagerConfig
	if configFile != "" {
		var err error
		cfg, err = config.LoadFile(configFile)
		if err != nil {
			return config.ReadManagerConfig{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	if v := viper.GetInt("max_open_files"); v != 0 {
		cfg.MaxOpenFiles = v
	}
	if cmd.Flags().Changed("file-paths") {
		cfg.FilePaths = flagFilePaths
	}
	if cmd.Flags().Changed("max-open-files") {
		cfg.MaxOpenFiles = flagMaxOpen
	}
	return cfg, nil
}

// newManager builds a readmanager.Manager from the effective
// configuration: the --config file, if any, overridden by the
// environment and then by explicitly set flags.
func newManager(cmd *cobra.Command) (*readmanager.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(cfg.FilePaths) == 0 {
		return nil, fmt.Errorf("no file paths configured: pass --file-paths or --config")
	}
	return readmanager.New(readmanager.Config{
		FilePaths:    cfg.FilePaths,
		MaxOpenFiles: cfg.MaxOpenFiles,
	})
}
