// Command ignitedb is the CLI entrypoint dispatching the store's command surface
// (init/put/get/delete/scan/bench/metrics) per spec.md §6.4. Each subcommand is a thin
// adapter: parse flags, open an instance, call the matching ignitedb.Instance method, print
// the result, and map a propagated engine error to a non-zero exit code. No storage logic
// lives in this package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignitedb/ignitedb/internal/bench"
	"github.com/ignitedb/ignitedb/pkg/ignitedb"
	"github.com/ignitedb/ignitedb/pkg/options"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ignitedb",
		Short: "Embedded crash-consistent LSM key-value store",
	}

	root.AddCommand(newInitCmd())
	root.AddCommand(newPutCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newMetricsCmd())
	return root
}

func newInitCmd() *cobra.Command {
	var path string
	var queueDepth uint32
	var segmentSizeMiB uint64
	var enableSQPoll bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new store directory and write its config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options.NewDefaultOptions()
			opts.DataDir = path
			if queueDepth > 0 {
				opts.QueueDepth = queueDepth
			}
			if segmentSizeMiB > 0 {
				opts.WalSegmentSize = segmentSizeMiB << 20
			}
			opts.EnableSQPoll = enableSQPoll

			if err := opts.Validate(); err != nil {
				return err
			}
			return options.Save(&opts)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.Flags().Uint32Var(&queueDepth, "queue-depth", 0, "async I/O queue depth (default: engine default)")
	cmd.Flags().Uint64Var(&segmentSizeMiB, "segment-size", 0, "WAL segment size in MiB (default: engine default)")
	cmd.Flags().BoolVar(&enableSQPoll, "enable-sqpoll", false, "enable io_uring kernel-side submission polling")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newPutCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Durably write a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())
			return inst.Set(cmd.Context(), args[0], []byte(args[1]))
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newGetCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a key's current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())

			value, found, err := inst.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("Key not found: %s\n", args[0])
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Durably tombstone a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())
			return inst.Delete(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newScanCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "scan <start> <end>",
		Short: "Print every live key in the half-open range [start, end)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())

			entries, err := inst.Scan(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s = %s\n", e.Key, e.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newBenchCmd() *cobra.Command {
	var path string
	var keys, readPct, writePct int
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a closed-loop read/write load generator against a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())

			res, err := bench.Run(cmd.Context(), inst, bench.Config{
				Keys: keys, ReadPct: readPct, WritePct: writePct, Duration: duration,
			})
			if err != nil {
				return err
			}
			fmt.Printf(
				"ops=%d reads=%d writes=%d elapsed=%s throughput=%.1f ops/s\n",
				res.Ops, res.Reads, res.Writes, res.Elapsed, float64(res.Ops)/res.Elapsed.Seconds(),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.Flags().IntVar(&keys, "keys", 1000, "size of the key population")
	cmd.Flags().IntVar(&readPct, "read-pct", 90, "percentage of operations that are reads")
	cmd.Flags().IntVar(&writePct, "write-pct", 10, "percentage of operations that are writes")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the load generator")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print latency percentiles and operation counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer inst.Close(cmd.Context())

			raw, err := json.MarshalIndent(inst.Metrics(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "store data directory (required)")
	cmd.MarkFlagRequired("path")
	return cmd
}

func openInstance(ctx context.Context, path string) (*ignitedb.Instance, error) {
	if path == "" {
		return nil, fmt.Errorf("ignitedb: --path is required")
	}

	opts, err := options.Load(path)
	if err != nil {
		fallback := options.NewDefaultOptions()
		opts = &fallback
		opts.DataDir = path
	}

	return ignitedb.NewInstance(ctx, "ignitedb", func(o *options.Options) { *o = *opts })
}
