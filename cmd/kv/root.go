package kv

import (
	"github.com/ValentinKolb/aspike/client"
	"github.com/ValentinKolb/aspike/cmd/util"
	"github.com/spf13/cobra"
)

var (
	db *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform single-record operations",
		PersistentPreRunE: setupClient,
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if db != nil {
				db.Close()
			}
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Write-side flags
	KeyValueCommands.PersistentFlags().Int("ttl", 0, util.WrapString("Record time-to-live in seconds (0 uses the namespace default)"))
	KeyValueCommands.PersistentFlags().Bool("send-key", false, util.WrapString("Store the user key on the server alongside the record"))

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(headerCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(touchCmd)
	KeyValueCommands.AddCommand(addCmd)
	KeyValueCommands.AddCommand(appendCmd)
	KeyValueCommands.AddCommand(prependCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupClient connects to the cluster before any subcommand runs
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	db, err = util.NewClient()
	return err
}
