// rootmcp — MCP server for sandboxed ROOT/PyROOT data analysis.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rootmcp",
	Short: "MCP server exposing sandboxed ROOT/PyROOT execution tools.",
	Long: `rootmcp is a Model Context Protocol server for high-energy-physics data
analysis. It lets AI assistants execute Python/PyROOT code, RDataFrame
aggregations, TTree plots, RooFit fits, and C++ macros inside validated,
time-limited subprocess sandboxes.`,
	RunE:          runServe, // Default to serving over stdio.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, initCmd, historyCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
