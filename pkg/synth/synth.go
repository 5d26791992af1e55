// Package synth implements the outer length loop: the caller-facing
// synth(spec, ops, iter_range, n_samples, opts) entry point that tries
// CEGIS at each candidate program length in turn (optionally attempting a
// bit-width downscaled search first) and returns the first program found,
// or nil with diagnostic Stats if none exists in iter_range.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"

	"bvsynth/pkg/cegis"
	"bvsynth/pkg/downscale"
	"bvsynth/pkg/encoder"
	"bvsynth/pkg/ir"
)

// Options bundles synth's tunables, reified as an explicit struct rather
// than open-ended kwargs.
type Options struct {
	// NumSamples is not read by Synth: cegis.Run seeds every run with the
	// single all-zero input vector, whatever this is set to.
	NumSamples int
	// Downsize, when true, first attempts synthesis at each width in
	// DownsizeWidths before falling back to the plain length loop at the
	// spec's native width.
	Downsize bool
	// DownsizeWidths lists the reduced bit-widths to try, in order, when
	// Downsize is set. Defaults to []uint{4}, but overridable.
	DownsizeWidths []uint
	CegisOptions   cegis.Options
	EncoderBase    encoder.Options
	// OpFreqs, when non-nil, restricts the library built from families to
	// exactly these operators, each registered with the given frequency as
	// its usage cap (bvlib.Benchmark.OpFreqs' shape); pkg/encoder does not
	// enforce the caps. A nil map uses every operator in families at its own
	// registered frequency.
	OpFreqs map[string]uint
	// OutputPrefix, when non-empty, makes Synth log the Stats as indented
	// JSON at debug level once a downscaled program has been lifted to the
	// native width. No file is written, and no other outcome is dumped.
	OutputPrefix string
}

// LengthStats records one attempted program length's outcome.
type LengthStats struct {
	Length   int
	Attempts int
	Elapsed  time.Duration
	Outcome  string // "solved", "unrealizable", "unknown", "error"
}

// Stats aggregates an entire synth() call, across every length attempted
// (and, if Downsize was set, the downscaled attempt that preceded it).
type Stats struct {
	Lengths        []LengthStats
	DownsizeTried  bool
	DownsizeWidth  uint
	DownsizeResult string // "", "lifted", "downscale-unrealizable", "lift-failed"
	TotalElapsed   time.Duration
	SamplesUsed    int
}

// buildLib instantiates families at width, then restricts it to opFreqs when
// non-nil (mirroring bvlib.Benchmark.Library, generalized to any caller's
// frequency map rather than one hard-coded to the Hacker's-Delight catalog).
func buildLib(families *ir.FamilyLibrary, width uint, opFreqs map[string]uint) *ir.OpLibrary {
	full := families.Build(width)
	if opFreqs == nil {
		return full
	}
	lib := ir.NewOpLibrary()
	for name, freq := range opFreqs {
		if op, ok := full.Get(name); ok {
			lib.Add(op, freq)
		}
	}
	return lib
}

func (s *Stats) dump(prefix string, length int) {
	if prefix == "" {
		return
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Warnf("synth: failed to marshal stats for dump: %v", err)
		return
	}
	log.Debugf("synth: stats dump for length %d: %s", length, data)
}

// Synth runs the outer loop: for each length in iterLengths, build an
// encoder and run CEGIS, returning the first verified program. A nil
// *ir.Prg with a nil error means NoProgram — exhausted every length without
// finding one; a non-nil error means a fatal condition (MalformedInput,
// ContextMismatch) the caller must not retry past. A solver Check that
// returns Unknown also ends the call with a non-nil error rather than moving
// on to the next length.
func Synth(ctx context.Context, spec ir.Spec, families *ir.FamilyLibrary, iterLengths []int, newSolver cegis.NewSolver, opts Options) (*ir.Prg, *Stats, error) {
	if len(spec.OutTypes()) != 1 {
		return nil, nil, fmt.Errorf("synth: Synth requires a single-output spec")
	}
	width := spec.InTypes()[0].Width
	stats := &Stats{}
	started := time.Now()

	if opts.Downsize {
		widths := opts.DownsizeWidths
		if len(widths) == 0 {
			widths = []uint{4}
		}
		for _, w := range widths {
			if w >= width {
				continue
			}
			stats.DownsizeTried = true
			stats.DownsizeWidth = w
			log.Debugf("synth: attempting downscaled search at width %d", w)

			narrowSpec, _, err := downscale.Downsize(spec, families, w)
			if err != nil {
				log.Debugf("synth: downscale rewrite failed, falling back: %v", err)
				stats.DownsizeResult = "lift-failed"
				continue
			}
			narrowLib := buildLib(families, w, opts.OpFreqs)

			prg, lenStats, samplesUsed, err := synthAtWidth(ctx, narrowSpec, narrowLib, iterLengths, newSolver, opts, w)
			stats.Lengths = append(stats.Lengths, lenStats...)
			stats.SamplesUsed += samplesUsed
			if err != nil {
				return nil, stats, err
			}
			if prg == nil {
				stats.DownsizeResult = "downscale-unrealizable"
				continue
			}

			fullLib := buildLib(families, width, opts.OpFreqs)
			lifted, err := downscale.Lift(prg, families, width)
			if err != nil {
				log.Debugf("synth: lift failed, falling back to full-width search: %v", err)
				stats.DownsizeResult = "lift-failed"
				continue
			}

			resynthesized, err := downscale.ResynthesizeConstantsCEGIS(ctx, lifted, spec, fullLib, newSolver, opts.EncoderBase.MaxConsts, opts.EncoderBase.ConstSet, 0)
			if err != nil {
				log.Debugf("synth: constant resynthesis at full width failed, falling back: %v", err)
				stats.DownsizeResult = "lift-failed"
				continue
			}

			stats.DownsizeResult = "lifted"
			stats.TotalElapsed = time.Since(started)
			stats.dump(opts.OutputPrefix, prg.NumLines())
			return resynthesized, stats, nil
		}
	}

	lib := buildLib(families, width, opts.OpFreqs)
	prg, lenStats, samplesUsed, err := synthAtWidth(ctx, spec, lib, iterLengths, newSolver, opts, width)
	stats.Lengths = append(stats.Lengths, lenStats...)
	stats.SamplesUsed = samplesUsed
	stats.TotalElapsed = time.Since(started)
	if err != nil {
		return nil, stats, err
	}
	return prg, stats, nil
}

// synthAtWidth runs the plain length loop (no downscaling) at one fixed
// width, used both for the narrow-width attempt and the final fallback.
func synthAtWidth(ctx context.Context, spec ir.Spec, lib *ir.OpLibrary, iterLengths []int, newSolver cegis.NewSolver, opts Options, width uint) (*ir.Prg, []LengthStats, int, error) {
	var lengths []LengthStats
	var samplesUsed int

	for _, length := range iterLengths {
		lengthStart := time.Now()
		encOpts := opts.EncoderBase
		encOpts.Width = width
		encOpts.NumInputs = len(spec.InTypes())
		encOpts.NumOutputs = 1
		encOpts.Length = length

		prg, runStats, err := cegis.Run(ctx, spec, lib, encOpts, newSolver, opts.CegisOptions)
		ls := LengthStats{Length: length, Elapsed: time.Since(lengthStart)}
		if runStats != nil {
			ls.Attempts = runStats.Iterations
			samplesUsed = runStats.SamplesUsed
		}

		switch err.(type) {
		case nil:
			ls.Outcome = "solved"
			lengths = append(lengths, ls)
			return prg, lengths, samplesUsed, nil
		case *cegis.ErrUnrealizable:
			ls.Outcome = "unrealizable"
			lengths = append(lengths, ls)
			continue
		case *cegis.ErrExhausted:
			ls.Outcome = "unknown"
			lengths = append(lengths, ls)
			continue
		default:
			ls.Outcome = "error"
			lengths = append(lengths, ls)
			return nil, lengths, samplesUsed, err
		}
	}
	return nil, lengths, samplesUsed, nil
}
