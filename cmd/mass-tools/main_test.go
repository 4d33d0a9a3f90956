package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/mass-tools/internal/config"
	"github.com/ironsheep/mass-tools/internal/dataset"
)

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mass-tools.yaml")

	if err := runConfig([]string{"init", "-config", path}); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Annotate.OutputDir != config.DefaultConfig().Annotate.OutputDir {
		t.Errorf("outputDir: got %q", cfg.Annotate.OutputDir)
	}

	err = runConfig([]string{"init", "-config", path})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init without -force: got %v", err)
	}
	if err := runConfig([]string{"init", "-config", path, "-force"}); err != nil {
		t.Errorf("init -force: %v", err)
	}
}

func TestRunConfigUsage(t *testing.T) {
	if err := runConfig(nil); err == nil {
		t.Error("expected usage error without a subcommand")
	}
	if err := runConfig([]string{"show"}); err == nil {
		t.Error("expected usage error for unknown subcommand")
	}
}

func writeTestPNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeAnnotateFixture creates a one-case dataset whose mask region covers
// 49 px, and returns the dataset root.
func writeAnnotateFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	full := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range full.Pix {
		full.Pix[i] = 60
	}
	writeTestPNG(t, filepath.Join(root, "full", "p1.png"), full)

	mask := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 20; y < 27; y++ {
		for x := 20; x < 27; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	writeTestPNG(t, filepath.Join(root, "roi", "p1_1.png"), mask)

	info := "PatientID,SeriesDescription\n" +
		"Mass-Training_P_00001_LEFT_CC,full mammogram images\n" +
		"Mass-Training_P_00001_LEFT_CC_1,ROI mask images\n"
	sheet := "image_patient_id,image file path,UID,ROI_patient_id,ROI mask file path\n" +
		"Mass-Training_P_00001_LEFT_CC,full/p1.png,1.3.6.1,Mass-Training_P_00001_LEFT_CC_1,roi/p1_1.png\n"
	if err := os.WriteFile(filepath.Join(root, "dicom_info.csv"), []byte(info), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "combined.csv"), []byte(sheet), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestRunAnnotate(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		drawn bool
	}{
		{"default threshold rejects small region", nil, false},
		{"zero threshold accepts small region", []string{"-min-area", "0"}, true},
		{"explicit threshold below region", []string{"-min-area", "40"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeAnnotateFixture(t)
			out := filepath.Join(t.TempDir(), "results")

			args := []string{
				"-config", filepath.Join(root, "none.yaml"),
				"-env", filepath.Join(root, "none.env"),
				"-dicom-info", filepath.Join(root, "dicom_info.csv"),
				"-sheet", filepath.Join(root, "combined.csv"),
				"-root", root,
				"-output", out,
			}
			args = append(args, tt.flags...)
			if err := runAnnotate(context.Background(), args); err != nil {
				t.Fatalf("annotate: %v", err)
			}

			ledger, err := os.ReadFile(filepath.Join(out, "Processing results.csv"))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(ledger), "True,,1.3.6.1") {
				t.Errorf("ledger: %q", ledger)
			}

			f, err := os.Open(filepath.Join(out, "1.3.6.1.png"))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := png.Decode(f)
			if err != nil {
				t.Fatal(err)
			}

			r, g, b, _ := img.At(20, 20).RGBA()
			red := r>>8 == 255 && g>>8 == 0 && b>>8 == 0
			if red != tt.drawn {
				t.Errorf("outline at region corner: got red=%v, want %v", red, tt.drawn)
			}
		})
	}
}

func TestRunYOLO(t *testing.T) {
	dir := t.TempDir()
	cocoPath := filepath.Join(dir, "coco.json")
	doc := &dataset.COCO{
		Images:      []dataset.Image{{ID: 1, Width: 200, Height: 100, FileName: "a.png"}},
		Annotations: []dataset.Annotation{{ID: 1, ImageID: 1, BBox: [4]float64{50, 25, 100, 50}}},
	}
	if err := dataset.WriteCOCO(doc, cocoPath); err != nil {
		t.Fatal(err)
	}

	labels := filepath.Join(dir, "labels")
	if err := runYOLO([]string{"-coco", cocoPath, "-output", labels}); err != nil {
		t.Fatalf("yolo: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(labels, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "0 0.500000 0.500000 0.500000 0.500000" {
		t.Errorf("label line: got %q", got)
	}
}

func TestRunDetect_RequiresInput(t *testing.T) {
	err := runDetect(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.yaml")})
	if err == nil || !strings.Contains(err.Error(), "-image or -folder") {
		t.Errorf("got %v", err)
	}
}

func TestSet(t *testing.T) {
	fs, _ := newFlagSet("test")
	fs.Float64("min-area", 0, "")
	if err := fs.Parse([]string{"-min-area", "0"}); err != nil {
		t.Fatal(err)
	}
	if !set(fs, "min-area") {
		t.Error("min-area should be reported as set")
	}
	if set(fs, "config") {
		t.Error("config was not given")
	}
}
