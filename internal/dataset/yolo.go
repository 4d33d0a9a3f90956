package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// YOLOLine formats one normalized YOLO label line for a COCO box.
func YOLOLine(class int, bbox [4]float64, imgWidth, imgHeight int) string {
	w, h := float64(imgWidth), float64(imgHeight)
	xc := (bbox[0] + bbox[2]/2) / w
	yc := (bbox[1] + bbox[3]/2) / h
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", class, xc, yc, bbox[2]/w, bbox[3]/h)
}

// ConvertCOCOToYOLO writes <stem>.txt into outDir for every image in doc and
// returns the number of label files written. Images without annotations get
// an empty file. All boxes are written as class 0.
func ConvertCOCOToYOLO(doc *COCO, outDir string) (int, error) {
	if err := ensureWritable(outDir); err != nil {
		return 0, err
	}

	byImage := make(map[int][]Annotation, len(doc.Images))
	for _, a := range doc.Annotations {
		byImage[a.ImageID] = append(byImage[a.ImageID], a)
	}

	written := 0
	for _, img := range doc.Images {
		if img.Width <= 0 || img.Height <= 0 {
			return written, fmt.Errorf("image %d (%s) has invalid size %dx%d", img.ID, img.FileName, img.Width, img.Height)
		}

		var b strings.Builder
		for _, a := range byImage[img.ID] {
			b.WriteString(YOLOLine(0, a.BBox, img.Width, img.Height))
			b.WriteByte('\n')
		}

		stem := strings.TrimSuffix(filepath.Base(img.FileName), filepath.Ext(img.FileName))
		path := filepath.Join(outDir, stem+".txt")
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written++
	}
	return written, nil
}

// ConvertCOCOFile reads cocoPath and converts it with ConvertCOCOToYOLO.
func ConvertCOCOFile(cocoPath, outDir string) (int, error) {
	doc, err := ReadCOCO(cocoPath)
	if err != nil {
		return 0, err
	}
	return ConvertCOCOToYOLO(doc, outDir)
}

// ensureWritable creates dir and checks that a file can be written there.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
