// Package script parses allocator request traces.
//
// A trace is a line-oriented text file driving an allocator through a
// workload. Each line is one request against a numbered slot:
//
//	a <id> <size>    allocate <size> bytes into slot <id>
//	r <id> <size>    reallocate slot <id> to <size> bytes
//	f <id>           free slot <id>
//
// Blank lines and lines starting with # are ignored.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Op identifies a request kind.
type Op int

const (
	OpAlloc Op = iota + 1
	OpRealloc
	OpFree
)

func (o Op) String() string {
	switch o {
	case OpAlloc:
		return "alloc"
	case OpRealloc:
		return "realloc"
	case OpFree:
		return "free"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Request is one parsed trace line. Line is the 1-based source line for
// error reporting during replay.
type Request struct {
	Op   Op
	ID   int
	Size int
	Line int
}

// Script is a parsed trace. NumIDs is one past the highest slot number
// used, so a replayer can size its reference table up front.
type Script struct {
	Name     string
	Requests []Request
	NumIDs   int
}

// ParseFile reads and parses the trace at path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads a trace from r. The name appears in error messages and in
// the resulting Script.
func Parse(r io.Reader, name string) (*Script, error) {
	sc := bufio.NewScanner(r)
	s := &Script{Name: name}
	line := 0
	maxID := -1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		req := Request{Line: line}
		var err error
		switch fields[0] {
		case "a", "r":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%s:%d: want \"%s <id> <size>\", got %q", name, line, fields[0], text)
			}
			req.Op = OpAlloc
			if fields[0] == "r" {
				req.Op = OpRealloc
			}
			if req.ID, err = parseNum(fields[1]); err != nil {
				return nil, fmt.Errorf("%s:%d: bad id %q", name, line, fields[1])
			}
			if req.Size, err = parseNum(fields[2]); err != nil {
				return nil, fmt.Errorf("%s:%d: bad size %q", name, line, fields[2])
			}
		case "f":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s:%d: want \"f <id>\", got %q", name, line, text)
			}
			req.Op = OpFree
			if req.ID, err = parseNum(fields[1]); err != nil {
				return nil, fmt.Errorf("%s:%d: bad id %q", name, line, fields[1])
			}
		default:
			return nil, fmt.Errorf("%s:%d: unknown request %q", name, line, fields[0])
		}
		if req.ID > maxID {
			maxID = req.ID
		}
		s.Requests = append(s.Requests, req)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.NumIDs = maxID + 1
	return s, nil
}

func parseNum(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("not a non-negative integer: %q", s)
	}
	return n, nil
}
