package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kiln-ml/kiln/internal/parallel"
)

// LoadCSV loads a Kaggle-style MNIST export: one sample per row, the
// label in the first column, then the pixel columns in 0..255. A
// leading header row is detected and skipped. Rows are parsed across
// the worker pool since a 60k-sample export is a quarter million
// string conversions per image column.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(records) > 0 && isHeader(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %s holds no samples", path)
	}

	width := len(records[0]) - 1
	if width < 1 {
		return nil, fmt.Errorf("dataset: %s rows need a label plus at least one pixel", path)
	}

	images := make([][]float32, len(records))
	labels := make([]int32, len(records))
	errs := make([]error, len(records))
	parallel.For(len(records), func(i int) {
		errs[i] = parseRow(records[i], i, width, images, labels)
	}, parallel.DefaultConfig())
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	rows, cols := 1, width
	if s := int(math.Sqrt(float64(width))); s*s == width {
		rows, cols = s, s
	}
	return &Dataset{
		Images:  images,
		Labels:  labels,
		Classes: mnistClasses,
		Rows:    rows,
		Cols:    cols,
	}, nil
}

// WriteCSV writes ds in the layout LoadCSV reads: a header row, then
// one sample per row with the label first and pixels quantized back to
// 0..255.
func WriteCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	record := make([]string, ds.Features()+1)
	record[0] = "label"
	for j := 1; j < len(record); j++ {
		record[j] = "pixel" + strconv.Itoa(j-1)
	}
	err = w.Write(record)
	for i := 0; err == nil && i < ds.Len(); i++ {
		record[0] = strconv.Itoa(int(ds.Labels[i]))
		for j, p := range ds.Images[i] {
			record[j+1] = strconv.Itoa(int(math.Round(float64(p) * 255)))
		}
		err = w.Write(record)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	return f.Close()
}

func parseRow(record []string, row, width int, images [][]float32, labels []int32) error {
	if len(record) != width+1 {
		return fmt.Errorf("dataset: row %d has %d columns, want %d", row+1, len(record), width+1)
	}

	label, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return fmt.Errorf("dataset: row %d label: %w", row+1, err)
	}
	if label < 0 || label > 9 {
		return fmt.Errorf("dataset: row %d label %d out of range [0, 9]", row+1, label)
	}
	labels[row] = int32(label)

	img := make([]float32, width)
	for j := 0; j < width; j++ {
		p, err := strconv.Atoi(strings.TrimSpace(record[j+1]))
		if err != nil {
			return fmt.Errorf("dataset: row %d pixel %d: %w", row+1, j, err)
		}
		img[j] = float32(p) / 255
	}
	images[row] = img
	return nil
}

// isHeader reports whether the first column fails to parse as an
// integer label, which marks a header row.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(record[0]))
	return err != nil
}
