// Package cases resolves CBIS-DDSM cases from the dataset's CSV metadata.
//
// Two tables are joined. dicom_info.csv lists every DICOM series with its
// PatientID and SeriesDescription; only mass cases are used. The combined
// case sheet maps those identifiers to file paths and the study UID.
//
// Mask series are linked to their full mammogram by dropping the last
// underscore-separated segment of the mask's PatientID:
//
//	Mass-Training_P_00001_LEFT_CC_1  ->  Mass-Training_P_00001_LEFT_CC
package cases

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/mass-tools/internal/pipeline"
)

// Column names used from the two tables.
const (
	ColPatientID         = "PatientID"
	ColSeriesDescription = "SeriesDescription"
	ColImagePatientID    = "image_patient_id"
	ColImagePath         = "image file path"
	ColUID               = "UID"
	ColROIPatientID      = "ROI_patient_id"
	ColROIPath           = "ROI mask file path"
)

// Series descriptions selected from dicom_info.csv.
const (
	SeriesFull = "full mammogram images"
	SeriesROI  = "ROI mask images"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing column")

// Stats reports how many records the join kept and dropped.
type Stats struct {
	FullImages   int `json:"full_images"`
	Resolved     int `json:"resolved"`
	SkippedFull  int `json:"skipped_full"`
	DroppedMasks int `json:"dropped_masks"`
}

// Source is a pipeline.CaseSource backed by the two CSV files. Relative
// image paths from the sheet are joined to Root when it is set.
type Source struct {
	DicomInfoPath string
	SheetPath     string
	Root          string

	// Stats is filled by Cases.
	Stats Stats
}

// Cases implements pipeline.CaseSource.
func (s *Source) Cases(ctx context.Context) ([]pipeline.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, stats, err := LoadCSV(s.DicomInfoPath, s.SheetPath)
	if err != nil {
		return nil, err
	}
	s.Stats = stats

	if s.Root != "" {
		for i := range recs {
			recs[i].FullImagePath = s.rooted(recs[i].FullImagePath)
			for j := range recs[i].MaskPaths {
				recs[i].MaskPaths[j] = s.rooted(recs[i].MaskPaths[j])
			}
		}
	}
	return recs, nil
}

func (s *Source) rooted(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// LoadCSV opens both files and calls Resolve.
func LoadCSV(dicomInfoPath, sheetPath string) ([]pipeline.CaseRecord, Stats, error) {
	info, err := os.Open(dicomInfoPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening dicom info: %w", err)
	}
	defer info.Close()

	sheet, err := os.Open(sheetPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening case sheet: %w", err)
	}
	defer sheet.Close()

	return Resolve(info, sheet)
}

// Resolve joins dicom_info rows with the case sheet.
//
// Full mammograms are returned in their dicom_info order, each once. A full
// image id absent from the sheet is skipped; a mask id absent from the sheet
// is dropped from its case. When an id appears in the sheet more than once
// the first row wins.
func Resolve(dicomInfo, sheet io.Reader) ([]pipeline.CaseRecord, Stats, error) {
	var stats Stats

	fullIDs, masksByFull, err := readDicomInfo(dicomInfo)
	if err != nil {
		return nil, stats, err
	}
	stats.FullImages = len(fullIDs)

	images, rois, err := readSheet(sheet)
	if err != nil {
		return nil, stats, err
	}

	recs := make([]pipeline.CaseRecord, 0, len(fullIDs))
	for _, id := range fullIDs {
		img, ok := images[id]
		if !ok {
			stats.SkippedFull++
			continue
		}

		rec := pipeline.CaseRecord{UID: img.uid, FullImagePath: img.path}
		for _, maskID := range masksByFull[id] {
			path, ok := rois[maskID]
			if !ok {
				stats.DroppedMasks++
				continue
			}
			rec.MaskPaths = append(rec.MaskPaths, path)
		}
		recs = append(recs, rec)
	}
	stats.Resolved = len(recs)

	return recs, stats, nil
}

func readDicomInfo(r io.Reader) ([]string, map[string][]string, error) {
	rows, idx, err := readTable(r, "dicom info", ColPatientID, ColSeriesDescription)
	if err != nil {
		return nil, nil, err
	}

	var fullIDs []string
	seen := make(map[string]bool)
	masks := make(map[string][]string)

	for _, row := range rows {
		pid := row[idx[ColPatientID]]
		if !strings.Contains(pid, "Mass") {
			continue
		}
		switch row[idx[ColSeriesDescription]] {
		case SeriesFull:
			if !seen[pid] {
				seen[pid] = true
				fullIDs = append(fullIDs, pid)
			}
		case SeriesROI:
			base := BaseID(pid)
			masks[base] = append(masks[base], pid)
		}
	}
	return fullIDs, masks, nil
}

type sheetImage struct {
	path string
	uid  string
}

func readSheet(r io.Reader) (map[string]sheetImage, map[string]string, error) {
	rows, idx, err := readTable(r, "case sheet",
		ColImagePatientID, ColImagePath, ColUID, ColROIPatientID, ColROIPath)
	if err != nil {
		return nil, nil, err
	}

	images := make(map[string]sheetImage)
	rois := make(map[string]string)
	for _, row := range rows {
		if id := row[idx[ColImagePatientID]]; id != "" {
			if _, dup := images[id]; !dup {
				images[id] = sheetImage{path: row[idx[ColImagePath]], uid: row[idx[ColUID]]}
			}
		}
		if id := row[idx[ColROIPatientID]]; id != "" {
			if _, dup := rois[id]; !dup {
				rois[id] = row[idx[ColROIPath]]
			}
		}
	}
	return images, rois, nil
}

// BaseID drops the last underscore-separated segment of a mask PatientID.
func BaseID(patientID string) string {
	i := strings.LastIndex(patientID, "_")
	if i < 0 {
		return ""
	}
	return patientID[:i]
}

// readTable reads a CSV with a header row and checks that the named columns
// exist. Short rows are padded so every index is addressable.
func readTable(r io.Reader, name string, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s header: %w", name, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s has no %q column", ErrMissingColumn, name, col)
		}
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", name, err)
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return rows, idx, nil
}
