package dataset

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Default split settings.
const (
	DefaultValFraction = 0.2
	DefaultSeed        = 42
)

// SplitOptions configures Split.
type SplitOptions struct {
	ValFraction float64
	Seed        uint64

	// ClassNames are written to dataset.yaml. Empty selects ["mass"].
	ClassNames []string

	// Logger defaults to the standard logger.
	Logger *log.Logger
}

// SplitResult lists the image file names placed in each subset.
type SplitResult struct {
	Train         []string `json:"train"`
	Val           []string `json:"val"`
	MissingLabels []string `json:"missing_labels,omitempty"`
	DatasetYAML   string   `json:"dataset_yaml"`
}

// Split pairs every PNG in imageDir with the same-stem .txt in labelDir,
// shuffles the pairs with a seeded generator and copies them into
//
//	outDir/images/{train,val}
//	outDir/labels/{train,val}
//
// The validation subset receives ceil(n*ValFraction) pairs. Images without
// a label file are left out and reported in MissingLabels. The same inputs
// and seed always produce the same split.
func Split(imageDir, labelDir, outDir string, opts SplitOptions) (*SplitResult, error) {
	if opts.ValFraction == 0 {
		opts.ValFraction = DefaultValFraction
	}
	if opts.ValFraction <= 0 || opts.ValFraction >= 1 {
		return nil, fmt.Errorf("validation fraction must be in (0,1), got %v", opts.ValFraction)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	images, err := listPNGs(imageDir)
	if err != nil {
		return nil, err
	}

	res := &SplitResult{}
	var names []string
	for _, p := range images {
		name := filepath.Base(p)
		if _, err := os.Stat(filepath.Join(labelDir, labelName(name))); err != nil {
			opts.Logger.Printf("Warning: no label for %s", name)
			res.MissingLabels = append(res.MissingLabels, name)
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no labelled images in %s", imageDir)
	}

	train, val := shuffleSplit(names, opts.ValFraction, opts.Seed)
	res.Train, res.Val = train, val

	for _, subset := range []struct {
		name  string
		files []string
	}{{"train", train}, {"val", val}} {
		imgDst := filepath.Join(outDir, "images", subset.name)
		lblDst := filepath.Join(outDir, "labels", subset.name)
		for _, d := range []string{imgDst, lblDst} {
			if err := os.MkdirAll(d, 0755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", d, err)
			}
		}
		for _, name := range subset.files {
			if err := copyFile(filepath.Join(imageDir, name), filepath.Join(imgDst, name)); err != nil {
				return nil, err
			}
			lbl := labelName(name)
			if err := copyFile(filepath.Join(labelDir, lbl), filepath.Join(lblDst, lbl)); err != nil {
				return nil, err
			}
		}
	}

	classNames := opts.ClassNames
	if len(classNames) == 0 {
		classNames = []string{"mass"}
	}
	yamlPath, err := WriteDatasetYAML(outDir, classNames)
	if err != nil {
		return nil, err
	}
	res.DatasetYAML = yamlPath

	return res, nil
}

// shuffleSplit returns the train and validation subsets of names. names is
// sorted first so the result depends only on its contents and the seed.
func shuffleSplit(names []string, valFraction float64, seed uint64) (train, val []string) {
	shuffled := append([]string(nil), names...)
	sort.Strings(shuffled)

	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nVal := int(math.Ceil(float64(len(shuffled)) * valFraction))
	if nVal >= len(shuffled) {
		nVal = len(shuffled) - 1
	}
	return shuffled[nVal:], shuffled[:nVal]
}

func labelName(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ".txt"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
