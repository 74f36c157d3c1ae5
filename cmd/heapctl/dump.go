package main

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/heapkit/heapkit/arena/alloc"
	"github.com/heapkit/heapkit/script"
	"github.com/spf13/cobra"
)

var (
	dumpVerbose bool
)

var (
	redNodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blackNodeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpVerbose, "offsets", false, "Include block offsets, black heights, and duplicate counts")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [trace]",
		Short: "Print the free structures",
		Long: `The dump command prints the selected manager's free structures: the
red-black tree for the tree manager, the size-class lists for seglist.
With a trace argument the trace is replayed first, so the dump shows the
state the workload leaves behind.

Example:
  heapctl dump
  heapctl dump workload.script --offsets
  heapctl dump workload.script --allocator seglist`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

func runDump(args []string) error {
	a, release, err := newAllocator()
	if err != nil {
		return err
	}
	defer release()

	if len(args) == 1 {
		s, err := script.ParseFile(args[0])
		if err != nil {
			return err
		}
		if _, err := runScript(a, s, false); err != nil {
			return err
		}
		printVerbose("Replayed %s: %d requests\n", s.Name, len(s.Requests))
	}

	style := alloc.Plain
	if dumpVerbose {
		style = alloc.Verbose
	}
	var buf bytes.Buffer
	a.DumpFreeNodes(&buf, style)
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		printInfo("%s\n", colorize(line))
	}
	return nil
}

// colorize paints the node label at the end of a dump line, leaving the
// box-drawing prefix alone. Node labels start with their color letter.
func colorize(line string) string {
	if noColor {
		return line
	}
	if i := strings.Index(line, "R:"); i >= 0 {
		return line[:i] + redNodeStyle.Render(line[i:])
	}
	if i := strings.Index(line, "B:"); i >= 0 {
		return line[:i] + blackNodeStyle.Render(line[i:])
	}
	return line
}
