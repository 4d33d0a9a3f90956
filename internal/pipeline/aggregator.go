package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"time"

	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/imaging"
)

// Options configures an Aggregator. Zero values select the defaults.
type Options struct {
	// MinArea is the smallest accepted region area. Zero selects
	// detection.DefaultMinArea; use a negative value to accept any region.
	MinArea float64

	// Style controls the drawn outline. A zero Style selects the red 15 px default.
	Style imaging.Style

	// Finder is the contour backend. Nil selects detection.DefaultFinder.
	Finder detection.ContourFinder

	// Decoder and Encoder default to imaging.FileCodec.
	Decoder Decoder
	Encoder Encoder

	// Logger receives warnings and, when Verbose is set, per-mask details.
	// Nil selects the standard logger.
	Logger *log.Logger

	Verbose bool
}

// ExactMinArea returns the Options.MinArea value that applies threshold as
// given, including a threshold of zero.
func ExactMinArea(threshold float64) float64 {
	if threshold <= 0 {
		return -1
	}
	return threshold
}

// Aggregator processes single cases.
type Aggregator struct {
	outputDir string
	extractor *detection.Extractor
	style     imaging.Style
	decoder   Decoder
	encoder   Encoder
	logger    *log.Logger
	verbose   bool
}

// NewAggregator creates an Aggregator writing annotated images to outputDir.
func NewAggregator(outputDir string, opts Options) *Aggregator {
	minArea := opts.MinArea
	switch {
	case minArea == 0:
		minArea = detection.DefaultMinArea
	case minArea < 0:
		minArea = 0
	}

	style := opts.Style
	if style == (imaging.Style{}) {
		style = imaging.DefaultStyle()
	}

	a := &Aggregator{
		outputDir: outputDir,
		extractor: detection.NewExtractor(opts.Finder, minArea),
		style:     style,
		decoder:   opts.Decoder,
		encoder:   opts.Encoder,
		logger:    opts.Logger,
		verbose:   opts.Verbose,
	}
	if a.decoder == nil {
		a.decoder = imaging.FileCodec{}
	}
	if a.encoder == nil {
		a.encoder = imaging.FileCodec{}
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a
}

// MinArea returns the region area threshold in effect.
func (a *Aggregator) MinArea() float64 {
	return a.extractor.MinArea()
}

// OutputDir returns the directory annotated images are written to.
func (a *Aggregator) OutputDir() string {
	return a.outputDir
}

// WithLogger returns a shallow copy of a that logs to logger.
func (a *Aggregator) WithLogger(logger *log.Logger) *Aggregator {
	c := *a
	c.logger = logger
	return &c
}

// OutputPath returns the annotated image path for uid.
func (a *Aggregator) OutputPath(uid string) string {
	return filepath.Join(a.outputDir, uid+".png")
}

// ProcessCase loads the case's full image, draws the region of every usable
// mask onto it and writes the result to <output_dir>/<uid>.png.
//
// The case fails only when the full image cannot be read, the record is
// invalid, or the output cannot be written. Masks that cannot be read or
// that yield no region are skipped with a warning. A case where no mask was
// applied still succeeds and writes the unannotated image.
func (a *Aggregator) ProcessCase(ctx context.Context, rec CaseRecord) Result {
	start := time.Now()
	res := Result{UID: rec.UID}

	fail := func(err error) Result {
		a.logger.Printf("Error processing %s: %v", rec.UID, err)
		res.Success = false
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if rec.UID == "" {
		return fail(fmt.Errorf("%w: empty UID", ErrInvalidCase))
	}
	if rec.FullImagePath == "" {
		return fail(fmt.Errorf("%w: empty full image path for %s", ErrInvalidCase, rec.UID))
	}

	a.debugf("Processing image %s with %d masks", rec.UID, len(rec.MaskPaths))

	full, err := a.decoder.Decode(rec.FullImagePath)
	if err != nil {
		return fail(fmt.Errorf("full image %s: %w", rec.FullImagePath, err))
	}

	canvas := imaging.Canvas(full)
	width, height := canvas.Bounds().Dx(), canvas.Bounds().Dy()

	if len(rec.MaskPaths) == 0 {
		a.logger.Printf("Warning: No masks found for image %s", rec.UID)
	}

	res.Masks = make([]MaskOutcome, 0, len(rec.MaskPaths))
	applied := false
	for i, path := range rec.MaskPaths {
		a.debugf("  Processing mask %d/%d: %s", i+1, len(rec.MaskPaths), filepath.Base(path))

		outcome := a.applyMask(canvas, path, width, height)
		res.Masks = append(res.Masks, outcome)
		if outcome.Status == MaskApplied {
			applied = true
		}
	}

	if !applied {
		a.logger.Printf("Warning: No masks were successfully applied to image %s", rec.UID)
	}

	out := a.OutputPath(rec.UID)
	if err := a.encoder.Encode(canvas, out); err != nil {
		return fail(err)
	}
	a.debugf("Saved result to %s", out)

	res.Success = true
	res.OutputPath = out
	res.Duration = time.Since(start)
	return res
}

func (a *Aggregator) applyMask(canvas *image.NRGBA, path string, width, height int) MaskOutcome {
	outcome := MaskOutcome{Path: path}

	mask, err := a.decoder.Decode(path)
	if err != nil {
		a.logger.Printf("  Warning: Mask image not readable: %v", err)
		outcome.Status = MaskLoadFailed
		outcome.Detail = err.Error()
		return outcome
	}
	a.debugf("  Mask dimensions: %dx%d", mask.Bounds().Dx(), mask.Bounds().Dy())

	gray, err := imaging.NormalizeMask(mask, width, height)
	if err != nil {
		a.logger.Printf("  Warning: Mask %s could not be normalized: %v", filepath.Base(path), err)
		outcome.Status = MaskNormalizeFailed
		outcome.Detail = err.Error()
		return outcome
	}

	ex := a.extractor.Extract(gray)
	a.debugf("  Mask has %d non-zero pixels, %d contours, largest area %.1f",
		ex.Foreground, ex.Contours, ex.LargestArea)

	if ex.Region == nil {
		switch ex.Reason {
		case detection.ReasonEmpty:
			a.logger.Printf("  Warning: Mask is completely black: %s", filepath.Base(path))
		case detection.ReasonNoContours:
			a.logger.Printf("  Warning: No contours found in mask %s", filepath.Base(path))
		case detection.ReasonTooSmall:
			a.logger.Printf("  Warning: Contour area too small: %.1f", ex.LargestArea)
		}
		outcome.Status = MaskNoRegion
		outcome.Detail = string(ex.Reason)
		return outcome
	}

	r := ex.Region
	a.debugf("  Drawing rectangle at (%d, %d) with width %d and height %d", r.X, r.Y, r.Width, r.Height)
	imaging.DrawRegion(canvas, r.Rect(), a.style)

	outcome.Status = MaskApplied
	outcome.Region = r
	return outcome
}

func (a *Aggregator) debugf(format string, args ...interface{}) {
	if a.verbose {
		a.logger.Printf(format, args...)
	}
}
