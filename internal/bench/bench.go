// Package bench compares the cost of governed logging with popular Go
// loggers writing the same record.
package bench

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Options configures Run.
type Options struct {
	// Writer receives the log output. Defaults to io.Discard.
	Writer io.Writer

	// Progress, if set, is called before each adapter runs.
	Progress func(a Adapter)
}

// Result is the measurement for one adapter.
type Result struct {
	Name        string
	Library     string
	Variant     Variant
	N           int
	NsPerOp     int64
	AllocsPerOp int64
	BytesPerOp  int64
	// Ratio is NsPerOp relative to the baseline, 0 when no baseline ran.
	Ratio float64
}

// Run benchmarks each adapter in order.
func Run(adapters []Adapter, opts Options) []Result {
	w := opts.Writer
	if w == nil {
		w = io.Discard
	}

	results := make([]Result, 0, len(adapters))
	var baseline int64
	for _, a := range adapters {
		if opts.Progress != nil {
			opts.Progress(a)
		}

		log := a.New(w)
		br := testing.Benchmark(func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				log(time.Now())
			}
		})

		res := Result{
			Name:        a.Name,
			Library:     a.Library,
			Variant:     a.Variant,
			N:           br.N,
			NsPerOp:     br.NsPerOp(),
			AllocsPerOp: br.AllocsPerOp(),
			BytesPerOp:  br.AllocedBytesPerOp(),
		}
		if a.Baseline && baseline == 0 {
			baseline = res.NsPerOp
		}
		results = append(results, res)
	}

	if baseline > 0 {
		for i := range results {
			results[i].Ratio = float64(results[i].NsPerOp) / float64(baseline)
		}
	}
	return results
}

// WriteReport renders results as a table.
func WriteReport(w io.Writer, results []Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Logger", "Variant", "N", "ns/op", "Ratio", "allocs/op", "B/op"})
	table.SetAutoFormatHeaders(false)

	for _, r := range results {
		ratio := "-"
		if r.Ratio > 0 {
			ratio = fmt.Sprintf("%.2f", r.Ratio)
		}
		table.Append([]string{
			r.Library,
			string(r.Variant),
			fmt.Sprintf("%d", r.N),
			fmt.Sprintf("%d", r.NsPerOp),
			ratio,
			fmt.Sprintf("%d", r.AllocsPerOp),
			fmt.Sprintf("%d", r.BytesPerOp),
		})
	}

	table.Render()
}
