package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/aspike/cmd/util"
	"github.com/ValentinKolb/aspike/lib/types"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for aspike clusters",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult couples throughput with the latency distribution of one test
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for aspike clusters")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Seeds:     %s\n", viper.GetString("seeds"))
	fmt.Printf("Namespace: %s\n", util.GetNamespace())
	fmt.Printf("Threads:   %d\n", perfNumThreads)
	fmt.Printf("Keys:      %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)

	runTest := func(name string, op func(key *types.Key) error) {
		timer := gometrics.NewTimer()

		bench := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) {
				return
			}

			// prepare keys
			getKey, iter := getKeys(name)

			// seed keys so reads and deletes hit existing records
			iter(func(k *types.Key) {
				if err := db.Put(util.GetWritePolicy(), k, types.BinMap{"v": types.StringValue("test")}); err != nil {
					log.Printf("(%s) - error seeding key: %v\n", name, err)
				}
			})

			// cleanup
			b.Cleanup(func() {
				iter(func(k *types.Key) {
					if _, err := db.Delete(util.GetWritePolicy(), k); err != nil {
						log.Printf("(%s) - error deleting key: %v\n", name, err)
					}
				})
			})

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					if err := op(getKey(counter)); err != nil {
						log.Printf("(%s) - error: %v\n", name, err)
					}
					timer.UpdateSince(start)
					counter++
				}
			})
		})

		results[name] = perfResult{bench: bench, timer: timer}
		printResult(name, results[name])
	}

	runTest("put", func(key *types.Key) error {
		return db.Put(util.GetWritePolicy(), key, types.BinMap{"v": types.StringValue("test")})
	})

	largeValue := types.BytesValue(make([]byte, perfLargeValueSizeKB*1024))
	runTest("put-large", func(key *types.Key) error {
		return db.Put(util.GetWritePolicy(), key, types.BinMap{"v": largeValue})
	})

	runTest("get", func(key *types.Key) error {
		_, err := db.Get(util.GetBasePolicy(), key)
		return err
	})

	runTest("exists", func(key *types.Key) error {
		_, err := db.Exists(util.GetBasePolicy(), key)
		return err
	})

	runTest("touch", func(key *types.Key) error {
		return db.Touch(util.GetWritePolicy(), key)
	})

	counter := 0
	runTest("mixed", func(key *types.Key) error {
		counter++
		switch counter % 4 {
		case 0:
			return db.Put(util.GetWritePolicy(), key, types.BinMap{"v": types.StringValue("test")})
		case 1:
			_, err := db.Get(util.GetBasePolicy(), key)
			return err
		case 2:
			return db.Touch(util.GetWritePolicy(), key)
		default:
			_, err := db.Exists(util.GetBasePolicy(), key)
			return err
		}
	})

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) *types.Key, func(func(*types.Key))) {
	keys := make([]*types.Key, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		key, err := types.NewKey(util.GetNamespace(), util.GetSet(),
			fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
		if err != nil {
			log.Fatalf("failed to create test key: %v", err)
		}
		keys[i] = key
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) *types.Key {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(*types.Key)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	snapshot := result.timer.Snapshot()
	fmt.Printf("%-20s%.0fns/op\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, opsPerSec,
		time.Duration(snapshot.Percentile(0.50)),
		time.Duration(snapshot.Percentile(0.95)),
		time.Duration(snapshot.Percentile(0.99)))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Seeds", "Namespace",
		"Threads", "LargeValueSizeKB", "KeysCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		snapshot := result.timer.Snapshot()
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(snapshot.Percentile(0.50)).String(),
			time.Duration(snapshot.Percentile(0.95)).String(),
			time.Duration(snapshot.Percentile(0.99)).String(),
			skipped,
			viper.GetString("seeds"),
			util.GetNamespace(),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
