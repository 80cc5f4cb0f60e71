package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rootmcp/rootmcp/internal/config"
)

var initConfigPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := config.WriteDefault(initConfigPath); err != nil {
			return err
		}
		fmt.Printf("config written to %s\n", initConfigPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initConfigPath, "config", config.DefaultConfigPath(), "path to write the config file")
}
