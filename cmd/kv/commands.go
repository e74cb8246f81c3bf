package kv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/aspike/client"
	"github.com/ValentinKolb/aspike/cmd/util"
	"github.com/ValentinKolb/aspike/lib/types"
	"github.com/spf13/cobra"
)

// recordKey builds the key for a command line user key
func recordKey(userKey string) (*types.Key, error) {
	return types.NewKey(util.GetNamespace(), util.GetSet(), userKey)
}

// parseBins parses bin=value arguments into a bin map
func parseBins(args []string) (types.BinMap, error) {
	bins := make(types.BinMap, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bins must be given as name=value, got %q", arg)
		}
		bins[name] = util.ParseValue(value)
	}
	return bins, nil
}

// printRecord prints metadata and bins of a record
func printRecord(record *types.Record) {
	fmt.Printf("generation=%d, expiration=%d\n", record.Generation, record.Expiration)
	for name, value := range record.Bins {
		fmt.Printf("%s=%v\n", name, value)
	}
}

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [bin=value ...]",
		Short: "Writes the given bins of a record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			bins, err := parseBins(args[1:])
			if err != nil {
				return err
			}
			if err := db.Put(util.GetWritePolicy(), key, bins); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key] [bin ...]",
		Short: "Reads a record, optionally restricted to the given bins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			record, err := db.Get(util.GetBasePolicy(), key, args[1:]...)
			if err != nil {
				return err
			}
			printRecord(record)
			return nil
		},
	}
	headerCmd = &cobra.Command{
		Use:   "header [key]",
		Short: "Reads only the metadata of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			record, err := db.GetHeader(util.GetBasePolicy(), key)
			if err != nil {
				return err
			}
			fmt.Printf("generation=%d, expiration=%d\n", record.Generation, record.Expiration)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			existed, err := db.Delete(util.GetWritePolicy(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, existed=%t\n", args[0], existed)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks whether a record exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			found, err := db.Exists(util.GetBasePolicy(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	touchCmd = &cobra.Command{
		Use:   "touch [key]",
		Short: "Resets the expiration of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			if err := db.Touch(util.GetWritePolicy(), key); err != nil {
				return err
			}
			fmt.Println("touch successfully")
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [key] [bin] [delta]",
		Short: "Adds a delta to an integer bin and prints the new value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			delta, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be a number: %w", err)
			}
			add, err := client.AddOp(args[1], delta)
			if err != nil {
				return err
			}
			record, err := db.Operate(util.GetWritePolicy(), key, add, client.GetBinOp(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("%s=%v\n", args[1], record.Bins[args[1]])
			return nil
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [bin] [value]",
		Short: "Appends to a string bin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			op, err := client.AppendOp(args[1], args[2])
			if err != nil {
				return err
			}
			if _, err := db.Operate(util.GetWritePolicy(), key, op); err != nil {
				return err
			}
			fmt.Println("append successfully")
			return nil
		},
	}
	prependCmd = &cobra.Command{
		Use:   "prepend [key] [bin] [value]",
		Short: "Prepends to a string bin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := recordKey(args[0])
			if err != nil {
				return err
			}
			op, err := client.PrependOp(args[1], args[2])
			if err != nil {
				return err
			}
			if _, err := db.Operate(util.GetWritePolicy(), key, op); err != nil {
				return err
			}
			fmt.Println("prepend successfully")
			return nil
		},
	}
)
