// Package report records the outcome of each processed file and renders
// the per-operation tables printed by the command line.
package report

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"gsea/pkg/status"
)

// Result is one row of a report. Sizes are -1 when the file could not
// be inspected.
type Result struct {
	Name       string
	Output     string
	InputSize  int64
	OutputSize int64
	Elapsed    time.Duration
	Code       int
	Err        error
	Digest     string
}

// OK reports whether the row describes a successful operation.
func (r Result) OK() bool {
	return r.Code == status.OK
}

// Section is a titled group of results, one per operation step.
type Section struct {
	Title   string
	Results []Result
}

// Failed returns the number of rows with a non-zero code.
func (s Section) Failed() int {
	var failed int
	for _, r := range s.Results {
		if !r.OK() {
			failed++
		}
	}
	return failed
}

// FirstFailure returns the first failing row, if any.
func (s Section) FirstFailure() (Result, bool) {
	for _, r := range s.Results {
		if !r.OK() {
			return r, true
		}
	}
	return Result{}, false
}

// Measure runs fn, timing it, and returns a row describing the input
// and output files afterwards.
func Measure(name, input, output string, fn func() error) Result {
	start := time.Now()
	err := fn()
	return Result{
		Name:       name,
		Output:     output,
		InputSize:  fileSize(input),
		OutputSize: fileSize(output),
		Elapsed:    time.Since(start),
		Code:       status.Code(err),
		Err:        err,
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// Render writes the section as an aligned table followed by a TOTAL row.
func Render(w io.Writer, s Section) error {
	var withDigest bool
	for _, r := range s.Results {
		if r.Digest != "" {
			withDigest = true
			break
		}
	}

	if _, err := fmt.Fprintf(w, "\n===== %s =====\n", s.Title); err != nil {
		return err
	}
	writer := tabwriter.NewWriter(w, 2, 0, 2, ' ', tabwriter.AlignRight)
	header := "File\tInput Size\tOutput Size\tDelta\tTime (ms)\tStatus\t"
	if withDigest {
		header += "BLAKE3\t"
	}
	fmt.Fprintln(writer, header)

	var sumIn, sumOut int64
	var sumElapsed time.Duration
	for _, r := range s.Results {
		state := "OK"
		if !r.OK() {
			state = "ERR"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t",
			truncate(r.Name, 40),
			formatSize(r.InputSize),
			formatSize(r.OutputSize),
			formatDelta(r.InputSize, r.OutputSize),
			formatMillis(r.Elapsed),
			state,
		)
		if withDigest {
			line += r.Digest + "\t"
		}
		fmt.Fprintln(writer, line)

		sumIn += max(r.InputSize, 0)
		sumOut += max(r.OutputSize, 0)
		sumElapsed += r.Elapsed
	}

	total := fmt.Sprintf("[TOTAL]\t%s\t%s\t%s\t%s\t-\t",
		formatSize(sumIn), formatSize(sumOut), formatDelta(sumIn, sumOut), formatMillis(sumElapsed))
	if withDigest {
		total += "\t"
	}
	fmt.Fprintln(writer, total)
	return writer.Flush()
}

func formatSize(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatDelta(in, out int64) string {
	if in < 0 || out < 0 {
		return "-"
	}
	if out < in {
		return "-" + humanize.IBytes(uint64(in-out))
	}
	return "+" + humanize.IBytes(uint64(out-in))
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d)/float64(time.Millisecond))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
