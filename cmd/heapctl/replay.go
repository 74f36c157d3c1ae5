package main

import (
	"fmt"
	"time"

	"github.com/heapkit/heapkit/arena/alloc"
	"github.com/heapkit/heapkit/script"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	replayValidate bool
	replayRuns     int
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().BoolVar(&replayValidate, "validate", false, "Run the invariant checker after every request")
	cmd.Flags().IntVar(&replayRuns, "runs", 1, "Replay the trace this many times")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay a request trace against an allocator",
		Long: `The replay command parses a request trace and drives the selected
free-space manager through it, reporting timing, utilization, and the
operation counters.

Example:
  heapctl replay workload.script
  heapctl replay workload.script --allocator seglist --size 4194304
  heapctl replay workload.script --validate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0])
		},
	}
	return cmd
}

type replayResult struct {
	Requests  int
	Duration  time.Duration
	PeakBytes int64
	FreeCount int
}

func runReplay(path string) error {
	s, err := script.ParseFile(path)
	if err != nil {
		return err
	}
	printVerbose("Parsed %s: %d requests, %d slots\n", s.Name, len(s.Requests), s.NumIDs)

	p := message.NewPrinter(language.English)
	for run := 0; run < replayRuns; run++ {
		a, release, err := newAllocator()
		if err != nil {
			return err
		}
		res, err := runScript(a, s, replayValidate)
		if err != nil {
			release()
			return err
		}
		printInfo("%s over %s (%s bytes)\n", s.Name, allocName, p.Sprintf("%d", regionSize))
		printInfo("  requests:     %s\n", p.Sprintf("%d", res.Requests))
		printInfo("  elapsed:      %s\n", res.Duration)
		printInfo("  peak demand:  %s bytes (%.1f%% of region)\n",
			p.Sprintf("%d", res.PeakBytes), float64(res.PeakBytes)*100/float64(regionSize))
		printInfo("  free blocks:  %s\n", p.Sprintf("%d", res.FreeCount))
		if m, ok := a.(interface{ Stats() alloc.Stats }); ok {
			st := m.Stats()
			printInfo("  splits:       %s\n", p.Sprintf("%d", st.Splits))
			printInfo("  merges:       %s left, %s right\n",
				p.Sprintf("%d", st.CoalesceLeft), p.Sprintf("%d", st.CoalesceRight))
			printInfo("  bytes served: %s\n", p.Sprintf("%d", st.BytesServed))
		}
		if !a.Validate() {
			release()
			return fmt.Errorf("final validation failed after replaying %s", s.Name)
		}
		release()
	}
	return nil
}

// runScript drives a through every request in s, tracking one reference
// per script slot the way the trace format expects.
func runScript(a alloc.Allocator, s *script.Script, validate bool) (*replayResult, error) {
	refs := make([]alloc.Ref, s.NumIDs)
	sizes := make([]int64, s.NumIDs)
	for i := range refs {
		refs[i] = alloc.NullRef
	}
	var inUse, peak int64
	start := time.Now()
	for _, req := range s.Requests {
		switch req.Op {
		case script.OpAlloc:
			ref, _, err := a.Alloc(req.Size)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: alloc %d: %w", s.Name, req.Line, req.Size, err)
			}
			refs[req.ID] = ref
			inUse += int64(req.Size) - sizes[req.ID]
			sizes[req.ID] = int64(req.Size)
		case script.OpRealloc:
			ref, _, err := a.Realloc(refs[req.ID], req.Size)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: realloc %d: %w", s.Name, req.Line, req.Size, err)
			}
			refs[req.ID] = ref
			inUse += int64(req.Size) - sizes[req.ID]
			sizes[req.ID] = int64(req.Size)
		case script.OpFree:
			if err := a.Free(refs[req.ID]); err != nil {
				return nil, fmt.Errorf("%s:%d: free: %w", s.Name, req.Line, err)
			}
			refs[req.ID] = alloc.NullRef
			inUse -= sizes[req.ID]
			sizes[req.ID] = 0
		}
		if inUse > peak {
			peak = inUse
		}
		if validate && !a.Validate() {
			return nil, fmt.Errorf("%s:%d: invariant check failed after %s", s.Name, req.Line, req.Op)
		}
	}
	return &replayResult{
		Requests:  len(s.Requests),
		Duration:  time.Since(start),
		PeakBytes: peak,
		FreeCount: a.FreeCount(),
	}, nil
}
