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
	// ScanCommands streams the records of a namespace or set
	ScanCommands = &cobra.Command{
		Use:   "scan [bin ...]",
		Short: "Streams all records of a namespace or set",
		RunE:  runScan,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)
	util.SetupClientFlags(ScanCommands)

	ScanCommands.Flags().Uint64("max-records", 0, util.WrapString("Stop after this many records (0 for all)"))
	ScanCommands.Flags().Bool("no-bins", false, util.WrapString("Return digests and metadata only"))
	ScanCommands.Flags().Bool("count", false, util.WrapString("Only print the number of records"))
	ScanCommands.Flags().Int("begin", 0, util.WrapString("First partition to scan"))
	ScanCommands.Flags().Int("partitions", 4096, util.WrapString("Number of partitions to scan"))
	ScanCommands.Flags().Int("concurrent-nodes", 0, util.WrapString("Maximum node streams running in parallel (0 for all nodes at once)"))
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	db, err := util.NewClient()
	if err != nil {
		return err
	}
	defer db.Close()

	p := policy.NewScanPolicy()
	p.BasePolicy = *util.GetBasePolicy()
	p.TotalTimeout = 0 // scans run until drained
	p.MaxRecords = viper.GetUint64("max-records")
	p.IncludeBinData = !viper.GetBool("no-bins")
	p.MaxConcurrentNodes = viper.GetInt("concurrent-nodes")

	pf := client.NewPartitionFilterRange(viper.GetInt("begin"), viper.GetInt("partitions"))

	rs, err := db.ScanPartitions(p, pf, util.GetNamespace(), util.GetSet(), args...)
	if err != nil {
		return err
	}

	countOnly := viper.GetBool("count")
	count := 0
	for res := range rs.Results() {
		if res.Err != nil {
			return res.Err
		}
		count++
		if countOnly {
			continue
		}

		digest := res.Record.Key.Digest()
		fmt.Printf("digest=%x generation=%d", digest, res.Record.Generation)
		for name, value := range res.Record.Bins {
			fmt.Printf(" %s=%v", name, value)
		}
		fmt.Println()
	}

	fmt.Printf("%d records\n", count)
	return nil
}
