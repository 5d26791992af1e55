package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bvsynth/pkg/bvlib"
	"bvsynth/pkg/ir"
	"bvsynth/pkg/smt"
	"bvsynth/pkg/smt/fd"
	"bvsynth/pkg/synth"
	"bvsynth/pkg/term"
)

var runCmd = &cobra.Command{
	Use:   "run [benchmark...]",
	Short: "Run the Hacker's-Delight benchmark catalog through the synthesizer.",
	Long: `Run one or more named benchmarks (p01, p03, p04, p09, p22, ...) from the
built-in Hacker's-Delight catalog through the CEGIS synthesizer, at the
configured bit-width. With no arguments, runs every benchmark in the catalog.`,
	Run: func(cmd *cobra.Command, args []string) {
		width := GetUint(cmd, "width")
		maxLength := GetUint(cmd, "max-length")
		downsize := GetFlag(cmd, "downsize")
		timeoutMs := GetUint(cmd, "timeout")
		downsizeWidths := GetUintArray(cmd, "downsize-widths")

		catalog := selectBenchmarks(bvlib.Catalog(width), args)
		if len(catalog) == 0 {
			fmt.Println("no matching benchmark names")
			os.Exit(2)
		}

		families := bvlib.Families()
		newSolver := func(ctx *term.Context) smt.Solver {
			s := fd.New(ctx)
			if timeoutMs > 0 {
				s.SetTimeout(time.Duration(timeoutMs) * time.Millisecond)
			}
			return s
		}

		failed := 0
		for _, b := range catalog {
			if !runOne(b, families, newSolver, int(maxLength), downsize, downsizeWidths) {
				failed++
			}
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

// selectBenchmarks filters all down to the benchmarks named in names,
// preserving the catalog's declaration order; with no names, returns all.
func selectBenchmarks(all []bvlib.Benchmark, names []string) []bvlib.Benchmark {
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []bvlib.Benchmark
	for _, b := range all {
		if want[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

// runOne drives one benchmark's synth() call and reports the outcome,
// returning whether a program was found.
func runOne(b bvlib.Benchmark, families *ir.FamilyLibrary, newSolver func(*term.Context) smt.Solver, maxLength int, downsize bool, downsizeWidths []uint) bool {
	lengths := make([]int, maxLength)
	for i := range lengths {
		lengths[i] = i + 1
	}

	opts := synth.Options{
		OpFreqs:        b.OpFreqs,
		Downsize:       downsize,
		DownsizeWidths: downsizeWidths,
	}
	opts.EncoderBase.MaxConsts = b.MaxConsts
	opts.EncoderBase.ConstSet = b.ConstSet

	started := time.Now()
	prg, stats, err := synth.Synth(context.Background(), b.Spec, families, lengths, newSolver, opts)
	elapsed := time.Since(started)

	if err != nil {
		log.Errorf("%s: internal error: %v", b.Name, err)
		return false
	}
	if prg == nil {
		fmt.Printf("%-10s FAILED  (%d lengths tried, %s) — %s\n", b.Name, len(stats.Lengths), elapsed, b.Description)
		return false
	}

	fmt.Printf("%-10s OK      (%d instructions, %s) — %s\n", b.Name, prg.NumLines(), elapsed, b.Description)
	log.Debugf("%s: synthesized program:\n%s", b.Name, prg.String())
	return true
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint("max-length", 6, "maximum program length to search before giving up")
	runCmd.Flags().Bool("downsize", false, "attempt a bit-width downscaled search before the full-width search")
	runCmd.Flags().Uint("timeout", 0, "per-check solver timeout in milliseconds (0 disables)")
	runCmd.Flags().IntSlice("downsize-widths", []int{4}, "bit-widths to try during downscaled search, in order")
}
