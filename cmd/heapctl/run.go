package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/heapkit"
	"github.com/QuangTung97/heapkit/allocator"
)

var (
	runRegionSize   int
	runUseMmap      bool
	runValidateEach bool
	runDump         bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runRegionSize, "region-size", 1<<20, "Size of the managed region in bytes")
	cmd.Flags().BoolVar(&runUseMmap, "mmap", false, "Back the region with an anonymous memory mapping")
	cmd.Flags().BoolVar(&runValidateEach, "validate-each", false, "Validate the heap after every request")
	cmd.Flags().BoolVar(&runDump, "dump", false, "Print the block layout after each script")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>...",
		Short: "Replay allocation scripts",
		Long: `The run command replays each script against a fresh heap.

Script lines:
  a <id> <size>   allocate
  r <id> <size>   resize
  f <id>          free

Example:
  heapctl run trace.script
  heapctl run --region-size 65536 --validate-each a.script b.script
  heapctl run --json trace.script`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
	}
	return cmd
}

type runReport struct {
	Script      string  `json:"script"`
	Requests    int     `json:"requests"`
	PeakPayload uint64  `json:"peak_payload"`
	RegionSize  uint64  `json:"region_size"`
	Utilization float64 `json:"utilization_percent"`
	Valid       bool    `json:"valid"`
	Error       string  `json:"error,omitempty"`
	Blocks      []block `json:"blocks,omitempty"`
}

type block struct {
	Addr      uint64 `json:"addr"`
	Size      uint64 `json:"size"`
	Allocated bool   `json:"allocated"`
}

func runRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logger := newLogger()

	var reports []runReport
	var firstErr error
	for _, path := range args {
		report, err := replayFile(cmd, path)
		if err != nil {
			logger.Error("replay failed", "script", path, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		reports = append(reports, report)
	}

	if jsonOut {
		if err := printJSON(out, reports); err != nil {
			return err
		}
		return firstErr
	}

	for _, r := range reports {
		printReport(out, r)
	}
	return firstErr
}

func replayFile(cmd *cobra.Command, path string) (runReport, error) {
	report := runReport{Script: path}

	script, err := heapkit.LoadScript(path)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	h, err := allocator.New(allocator.Config{
		RegionSize: runRegionSize,
		UseMmap:    runUseMmap,
		Logger:     newLogger(),
	})
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	defer func() { _ = h.Close() }()

	replayer := heapkit.NewReplayer(h, heapkit.ReplayConfig{
		ValidateEach: runValidateEach,
		Logger:       newLogger(),
	})
	result, runErr := replayer.Run(cmd.Context(), script)

	report.Requests = result.Requests
	report.PeakPayload = result.PeakPayload
	report.RegionSize = result.RegionSize
	report.Utilization = result.Utilization.Percent()
	report.Valid = h.Validate()
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if runDump {
		h.Walk(func(b allocator.Block) bool {
			report.Blocks = append(report.Blocks, block{Addr: b.Addr, Size: b.Size, Allocated: b.Allocated})
			return true
		})
	}
	return report, runErr
}

func printReport(w io.Writer, r runReport) {
	printInfo(w, "%s\n", r.Script)
	if r.Error != "" {
		printInfo(w, "  ✗ %s\n", r.Error)
	}
	printInfo(w, "  requests:    %d\n", r.Requests)
	printInfo(w, "  peak:        %d of %d bytes\n", r.PeakPayload, r.RegionSize)
	printInfo(w, "  utilization: %.1f%%\n", r.Utilization)
	if r.Valid {
		printInfo(w, "  heap:        ✓ valid\n")
	} else {
		printInfo(w, "  heap:        ✗ INVALID\n")
	}

	for _, b := range r.Blocks {
		status := "free"
		if b.Allocated {
			status = "used"
		}
		printInfo(w, "    0x%08X %8d %s\n", b.Addr, b.Size, status)
	}
}
