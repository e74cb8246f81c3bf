package scan

import (
	"fmt"

	"github.com/ValentinKolb/aspike/client"
	"github.com/ValentinKolb/aspike/cmd/util"
	"github.com/ValentinKolb/aspike/lib/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// QueryCommands streams records with a server-side bin projection
	QueryCommands = &cobra.Command{
		Use:   "query [bin ...]",
		Short: "Streams records, projecting to the given bins server-side",
		RunE:  runQuery,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)
	util.SetupClientFlags(QueryCommands)

	QueryCommands.Flags().Uint64("max-records", 0, util.WrapString("Stop after this many records (0 for all)"))
	QueryCommands.Flags().Int("begin", 0, util.WrapString("First partition to query"))
	QueryCommands.Flags().Int("partitions", 4096, util.WrapString("Number of partitions to query"))
	QueryCommands.Flags().Int("concurrent-nodes", 0, util.WrapString("Maximum node streams running in parallel (0 for all nodes at once)"))
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	db, err := util.NewClient()
	if err != nil {
		return err
	}
	defer db.Close()

	p := policy.NewQueryPolicy()
	p.BasePolicy = *util.GetBasePolicy()
	p.TotalTimeout = 0 // queries run until drained
	p.MaxRecords = viper.GetUint64("max-records")
	p.MaxConcurrentNodes = viper.GetInt("concurrent-nodes")

	pf := client.NewPartitionFilterRange(viper.GetInt("begin"), viper.GetInt("partitions"))

	rs, err := db.QueryPartitions(p, pf, util.GetNamespace(), util.GetSet(), args...)
	if err != nil {
		return err
	}

	count := 0
	for res := range rs.Results() {
		if res.Err != nil {
			return res.Err
		}
		count++

		digest := res.Record.Key.Digest()
		fmt.Printf("digest=%x bval=%d", digest, res.BVal)
		for name, value := range res.Record.Bins {
			fmt.Printf(" %s=%v", name, value)
		}
		fmt.Println()
	}

	fmt.Printf("%d records\n", count)
	return nil
}
