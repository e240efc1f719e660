// SPDX-License-Identifier: MIT

// Package report writes the analysis artifacts as CSV files. All files are
// written atomically; an interrupted run never leaves partial output behind.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/ccan-dev/ccan/internal/cochange"
)

const binLayout = "2006-01-02 15:04:05 MST"

// Options name the output location and the parameters encoded into the file
// names, so runs with different settings never overwrite each other.
type Options struct {
	OutputDir  string
	Repository string
	Algorithm  string
	Binning    string
	ChangesMin int
	FreqMin    int
}

// Dir returns the per-repository output directory.
func (o Options) Dir() string {
	return filepath.Join(o.OutputDir, "ccan-output", filepath.Base(o.Repository))
}

// FileName returns the full path of one artifact.
func (o Options) FileName(prefix string) string {
	name := fmt.Sprintf("%s-a%s-d%s-c%d-f%d.csv",
		prefix, o.Algorithm, o.Binning, o.ChangesMin, o.FreqMin)
	return filepath.Join(o.Dir(), name)
}

// WriteAll writes every artifact of a completed analysis. Empty matrices
// produce no file. A nil ripples value (prediction skipped) omits c_ripple.
func WriteAll(opts Options, changes *cochange.Changes, cc *cochange.CoChanges, ripples *cochange.RippleProbabilities) error {
	if err := os.MkdirAll(opts.Dir(), 0o755); err != nil {
		return fmt.Errorf("create output dir %q: %w", opts.Dir(), err)
	}

	if err := WriteCoChangeMatrix(opts.FileName("cc_freqs"), cc.Freqs); err != nil {
		return err
	}
	if err := WriteFiles(opts.FileName("cc_files"), cc.Freqs.ColNames()); err != nil {
		return err
	}
	if err := WriteCoChangeMatrix(opts.FileName("cc_probs"), cc.Probs); err != nil {
		return err
	}
	if err := WriteHistory(opts.FileName("c_hist"), changes.Freqs); err != nil {
		return err
	}
	if ripples != nil && len(ripples.Ripples) > 0 {
		if err := WriteProbabilities(opts.FileName("c_ripple"), ripples.Probabilities()); err != nil {
			return err
		}
	}
	return nil
}

// WriteCoChangeMatrix writes the raw matrix values, one row per record,
// without headers.
func WriteCoChangeMatrix(path string, m *cochange.CCMatrix) error {
	if m.IsEmpty() {
		return nil
	}
	return writeCSV(path, func(w *csv.Writer) error {
		record := make([]string, m.Cols())
		for i := 0; i < m.Rows(); i++ {
			for j := range record {
				record[j] = formatFloat(m.At(i, j))
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFiles writes the matrix file names as a single record.
func WriteFiles(path string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return writeCSV(path, func(w *csv.Writer) error {
		return w.Write(names)
	})
}

// WriteHistory writes the change matrix with a date header row and a file
// name label per row.
func WriteHistory(path string, m *cochange.ChangeMatrix) error {
	if m.IsEmpty() {
		return nil
	}
	return writeCSV(path, func(w *csv.Writer) error {
		header := make([]string, m.Cols()+1)
		for j, bin := range m.ColNames() {
			header[j+1] = bin.Format(binLayout)
		}
		if err := w.Write(header); err != nil {
			return err
		}

		record := make([]string, m.Cols()+1)
		for i, name := range m.RowNames() {
			record[0] = name
			for j := 0; j < m.Cols(); j++ {
				record[j+1] = formatFloat(m.At(i, j))
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteProbabilities writes the ripple probabilities as a single record.
func WriteProbabilities(path string, probs []float64) error {
	if len(probs) == 0 {
		return nil
	}
	return writeCSV(path, func(w *csv.Writer) error {
		record := make([]string, len(probs))
		for i, p := range probs {
			record[i] = formatFloat(p)
		}
		return w.Write(record)
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file for %q: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	w := csv.NewWriter(pending)
	if err := fill(w); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit %q: %w", path, err)
	}
	return nil
}
