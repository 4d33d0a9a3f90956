package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// debug is set by MASS_TOOLS_LOG_LEVEL=debug.
var debug bool

func usage() {
	fmt.Println("mass-tools - breast mass region extraction and detector dataset tools")
	fmt.Println()
	fmt.Println("Usage: mass-tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  annotate      Draw ROI mask regions onto full mammograms and write the results ledger")
	fmt.Println("  coco          Propose mass boxes for a directory of PNGs and write COCO JSON")
	fmt.Println("  yolo          Convert COCO JSON to YOLO label files")
	fmt.Println("  split         Split images and labels into train/val sets and write dataset.yaml")
	fmt.Println("  detect        Run the external mass detector on an image or folder")
	fmt.Println("  train         Launch detector training on a prepared dataset")
	fmt.Println("  serve         Run the MCP server on stdin/stdout")
	fmt.Println("  config init   Write a default configuration file")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Run 'mass-tools <command> -h' for command options.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  MASS_TOOLS_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  MASS_TOOLS_*                  Override configuration (see README)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("mass-tools %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		fmt.Printf("  Contours:   %s\n", detection.FinderName)
		return
	case "--help", "-h", "help":
		usage()
		return
	}

	// Configure logging to stderr (stdout carries progress and MCP traffic)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug = os.Getenv("MASS_TOOLS_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("mass-tools v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "annotate":
		err = runAnnotate(ctx, args)
	case "coco":
		err = runCOCO(ctx, args)
	case "yolo":
		err = runYOLO(args)
	case "split":
		err = runSplit(args)
	case "detect":
		err = runDetect(ctx, args)
	case "train":
		err = runTrain(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "config":
		err = runConfig(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs, common := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	if debug {
		log.Printf("Serving MCP on stdio (contours: %s)", detection.FinderName)
	}
	return srv.Run(ctx)
}
