package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/mass-tools/internal/cases"
	"github.com/ironsheep/mass-tools/internal/config"
	"github.com/ironsheep/mass-tools/internal/dataset"
	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/inference"
	"github.com/ironsheep/mass-tools/internal/pipeline"
)

// commonFlags are accepted by every command that reads configuration.
type commonFlags struct {
	configPath string
	envFile    string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "mass-tools.yaml", "Configuration file (missing file uses defaults)")
	fs.StringVar(&c.envFile, "env", ".env", "Environment file loaded before MASS_TOOLS_* overrides")
	return fs, c
}

func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return nil, err
	}
	if debug {
		log.Printf("Loaded configuration from %s", c.configPath)
	}
	return cfg, nil
}

// set reports whether the named flag was given on the command line.
func set(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func runAnnotate(ctx context.Context, args []string) error {
	fs, common := newFlagSet("annotate")
	dicomInfo := fs.String("dicom-info", "", "Path to dicom_info.csv")
	sheet := fs.String("sheet", "", "Path to the combined case sheet CSV")
	root := fs.String("root", "", "Directory that relative image paths in the sheet are resolved against")
	output := fs.String("output", "", "Output directory for annotated images, log and results table")
	workers := fs.Int("workers", 0, "Cases processed concurrently")
	knownTotal := fs.Int("known-total", 0, "Denominator for progress percentages (0 = number of cases)")
	minArea := fs.Float64("min-area", 0, "Smallest accepted region area in square pixels")
	verbose := fs.Bool("verbose", false, "Log per-mask details")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *dicomInfo != "" {
		cfg.Annotate.DicomInfoCSV = *dicomInfo
	}
	if *sheet != "" {
		cfg.Annotate.CaseSheetCSV = *sheet
	}
	if *output != "" {
		cfg.Annotate.OutputDir = *output
	}
	if *workers > 0 {
		cfg.Annotate.Workers = *workers
	}
	if *knownTotal > 0 {
		cfg.Annotate.KnownTotal = *knownTotal
	}
	if set(fs, "min-area") {
		cfg.Annotate.MinArea = *minArea
	}
	if *verbose || debug {
		cfg.Annotate.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Annotate.DicomInfoCSV == "" || cfg.Annotate.CaseSheetCSV == "" {
		return errors.New("both -dicom-info and -sheet are required")
	}

	style, err := cfg.OutlineStyle()
	if err != nil {
		return err
	}

	agg := pipeline.NewAggregator(cfg.Annotate.OutputDir, pipeline.Options{
		MinArea: pipeline.ExactMinArea(cfg.EffectiveMinArea()),
		Style:   style,
		Verbose: cfg.Annotate.Verbose,
	})

	metrics := pipeline.NewMetrics()
	opts := pipeline.BatchOptions{
		KnownTotal:    cfg.Annotate.KnownTotal,
		ProgressEvery: cfg.Annotate.ProgressEvery,
		Workers:       cfg.Annotate.Workers,
		Metrics:       metrics,
		MetricsFile:   cfg.Results.MetricsFile,
	}

	if cfg.Results.PostgresDSN != "" {
		sink, err := pipeline.OpenPostgresSink(ctx, cfg.Results.PostgresDSN)
		if err != nil {
			return err
		}
		defer sink.Close()
		opts.Sinks = append(opts.Sinks, sink)
	}

	src := &cases.Source{
		DicomInfoPath: cfg.Annotate.DicomInfoCSV,
		SheetPath:     cfg.Annotate.CaseSheetCSV,
		Root:          *root,
	}

	summary, err := pipeline.NewBatch(agg, opts).RunSource(ctx, src)
	if summary != nil && debug {
		log.Printf("Cases: %+v", src.Stats)
		log.Printf("Region areas: %+v", summary.Areas)
		log.Printf("Elapsed: %s", summary.Elapsed.Round(time.Millisecond))
	}
	return err
}

func runCOCO(ctx context.Context, args []string) error {
	fs, common := newFlagSet("coco")
	imageDir := fs.String("images", "", "Directory of PNG mammograms")
	output := fs.String("output", "coco.json", "COCO JSON file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imageDir == "" {
		return errors.New("-images is required")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	opts := dataset.DefaultGenerateOptions()
	opts.Boxes = cfg.COCO.Boxes
	opts.Description = cfg.COCO.Description
	opts.Version = cfg.COCO.Version
	opts.Category = cfg.COCO.Category

	doc, err := dataset.GenerateCOCO(ctx, *imageDir, opts)
	if err != nil {
		return err
	}
	if err := dataset.WriteCOCO(doc, *output); err != nil {
		return err
	}

	s := doc.Stats()
	fmt.Printf("Created COCO JSON at %s\n", *output)
	fmt.Printf("Stats: %d images, %d annotations\n", s.Images, s.Annotations)
	return nil
}

func runYOLO(args []string) error {
	fs := flag.NewFlagSet("yolo", flag.ExitOnError)
	cocoPath := fs.String("coco", "coco.json", "COCO JSON file")
	output := fs.String("output", "labels", "Directory for YOLO label files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n, err := dataset.ConvertCOCOFile(*cocoPath, *output)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d label files to %s\n", n, *output)
	return nil
}

func runSplit(args []string) error {
	fs, common := newFlagSet("split")
	imageDir := fs.String("images", "", "Directory of PNG images")
	labelDir := fs.String("labels", "", "Directory of YOLO label files (default: same as -images)")
	output := fs.String("output", "", "Dataset root to create (default: train.datasetRoot)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imageDir == "" {
		return errors.New("-images is required")
	}
	if *labelDir == "" {
		*labelDir = *imageDir
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *output == "" {
		*output = cfg.Train.DatasetRoot
	}

	res, err := dataset.Split(*imageDir, *labelDir, *output, dataset.SplitOptions{
		ValFraction: cfg.Split.ValFraction,
		Seed:        cfg.Split.Seed,
		ClassNames:  cfg.Split.ClassNames,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Train: %d images, Val: %d images\n", len(res.Train), len(res.Val))
	if len(res.MissingLabels) > 0 {
		fmt.Printf("Skipped %d images without labels\n", len(res.MissingLabels))
	}
	fmt.Printf("Dataset config written to %s\n", res.DatasetYAML)
	return nil
}

func runDetect(ctx context.Context, args []string) error {
	fs, common := newFlagSet("detect")
	image := fs.String("image", "", "Path to a single image")
	folder := fs.String("folder", "", "Path to a folder of images")
	conf := fs.Float64("conf", 0, "Confidence threshold (default from configuration)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *image == "" && *folder == "" {
		return errors.New("please provide either -image or -folder")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *conf > 0 {
		cfg.Detector.Confidence = *conf
	}

	client, err := inference.NewClient(inference.ClientConfig{
		InferenceURL:   cfg.Detector.InferenceURL,
		Confidence:     cfg.Detector.Confidence,
		HighConfidence: cfg.Detector.HighConfidence,
		Timeout:        time.Duration(cfg.Detector.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	if err := client.Health(ctx); err != nil {
		log.Printf("Warning: detector health check failed: %v", err)
	}

	if *image != "" {
		report, err := client.Detect(ctx, *image)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(report)
		}
		printImageReport(report)
		return nil
	}

	report, err := client.DetectFolder(ctx, *folder)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(report)
	}
	fmt.Printf("Found %d images to process\n", len(report.Images)+len(report.Failed))
	for i := range report.Images {
		printImageReport(&report.Images[i])
		fmt.Println("--------------------------------------------------")
	}
	fmt.Println("\n=== SUMMARY ===")
	fmt.Printf("Images processed: %d\n", len(report.Images))
	fmt.Printf("Total detections: %d\n", report.TotalDetections)
	fmt.Printf("High confidence detections: %d\n", report.TotalHigh)
	if len(report.Failed) > 0 {
		fmt.Printf("Failed: %d\n", len(report.Failed))
	}
	return nil
}

func printImageReport(r *inference.ImageReport) {
	fmt.Println("\n=== DETECTION RESULTS ===")
	fmt.Printf("Image: %s\n", filepath.Base(r.Image))
	fmt.Printf("Total detections: %d\n", len(r.Detections))
	for i, d := range r.Detections {
		fmt.Printf("Detection %d: Confidence %.3f\n", i+1, d.Confidence)
	}

	switch r.Priority {
	case inference.PriorityHigh:
		fmt.Printf("\nHIGH PRIORITY: %d high-confidence detection(s)\n", r.HighCount)
	case inference.PriorityMedium:
		fmt.Printf("\nMEDIUM PRIORITY: %d detection(s) found\n", len(r.Detections))
	default:
		fmt.Printf("\nLOW PRIORITY: ")
	}
	fmt.Printf("   %s\n", r.Priority.Recommendation())
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runTrain(ctx context.Context, args []string) error {
	fs, common := newFlagSet("train")
	device := fs.String("device", "", "Training device (default from configuration)")
	epochs := fs.Int("epochs", 0, "Number of epochs (default from configuration)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Train.Device = *device
	}
	if *epochs > 0 {
		cfg.Train.Epochs = *epochs
	}

	t := cfg.Train
	trainer := inference.NewTrainer(inference.TrainConfig{
		Command:      t.Command,
		DatasetRoot:  t.DatasetRoot,
		DatasetYAML:  t.DatasetYAML,
		Model:        t.Model,
		Epochs:       t.Epochs,
		ImageSize:    t.ImageSize,
		Batch:        t.Batch,
		Device:       t.Device,
		Workers:      t.Workers,
		Optimizer:    t.Optimizer,
		WarmupEpochs: t.WarmupEpochs,
		Cache:        t.Cache,
		SingleClass:  t.SingleClass,
		AMP:          t.AMP,
		Profile:      t.Profile,
	}, nil, nil)

	if debug {
		log.Printf("Running %s %v", t.Command, trainer.Args())
	}
	return trainer.Train(ctx)
}

func runConfig(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return errors.New("usage: mass-tools config init [-config path] [-force]")
	}

	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	path := fs.String("config", "mass-tools.yaml", "Configuration file to write")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *path)
	}
	if err := config.CreateDefaultConfigFile(*path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s (contours: %s)\n", *path, detection.FinderName)
	return nil
}
