package info

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/aspike/cmd/util"
	"github.com/spf13/cobra"
)

var (
	// InfoCommands runs admin commands against a random cluster node
	InfoCommands = &cobra.Command{
		Use:   "info [command ...]",
		Short: "Runs info commands against the cluster",
		Long: `Runs the given admin commands (e.g. node, features, namespaces,
partition-generation) against a random cluster node and prints the
values. Without arguments a default overview is requested.`,
		RunE: runInfo,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)
	util.SetupClientFlags(InfoCommands)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	db, err := util.NewClient()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		args = []string{"node", "partition-generation", "features", "namespaces"}
	}

	values, err := db.RequestInfo(nil, args...)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s\t%s\n", name, values[name])
	}
	return nil
}
