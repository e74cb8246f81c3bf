package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/aspike/cmd/info"
	"github.com/ValentinKolb/aspike/cmd/kv"
	"github.com/ValentinKolb/aspike/cmd/scan"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "aspike",
		Short: "Aerospike wire-protocol client",
		Long: fmt.Sprintf(`aspike (v%s)

A standalone Aerospike client speaking the native wire protocol:
digest-based partition routing, single-record operations, CDT
operations and partition scans with resumable cursors.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aspike",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aspike v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(scan.ScanCommands)
	RootCmd.AddCommand(scan.QueryCommands)
	RootCmd.AddCommand(info.InfoCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
