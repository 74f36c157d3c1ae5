package main

import (
	"fmt"
	"os"

	"github.com/heapkit/heapkit/arena"
	"github.com/heapkit/heapkit/arena/alloc"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	noColor    bool
	allocName  string
	regionSize int
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect heapkit free-space managers",
	Long: `heapctl replays allocator request traces against the heapkit
free-space managers and prints the resulting free structures, running
statistics, and validation results. It exists to exercise and debug the
allocators, not to manage a live heap.`,
	Version: "0.1.0",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&allocName, "allocator", "tree", "Free-space manager: tree or seglist")
	rootCmd.PersistentFlags().
		IntVar(&regionSize, "size", 1<<20, "Managed region size in bytes")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAllocator maps a fresh region and builds the selected manager over
// it. The returned func releases the mapping.
func newAllocator() (alloc.Allocator, func(), error) {
	seg, err := arena.MapSegment(regionSize)
	if err != nil {
		return nil, nil, err
	}
	var a alloc.Allocator
	switch allocName {
	case "tree":
		a, err = alloc.NewTree(seg.Bytes())
	case "seglist":
		a, err = alloc.NewSegList(seg.Bytes())
	default:
		err = fmt.Errorf("unknown allocator %q (want tree or seglist)", allocName)
	}
	if err != nil {
		seg.Close()
		return nil, nil, err
	}
	return a, func() { seg.Close() }, nil
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
