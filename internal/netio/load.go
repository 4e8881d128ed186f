package netio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// jsonMatrix is the on-disk JSON form.
type jsonMatrix struct {
	Classes int         `json:"classes"`
	Outputs [][]float32 `json:"outputs"`
}

// ReadJSON decodes {"classes":C,"outputs":[[...],...]}. Logit rows are
// converted to probabilities.
func ReadJSON(r io.Reader) (*Matrix, error) {
	var jm jsonMatrix
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return nil, fmt.Errorf("failed to decode matrix JSON: %w", err)
	}
	if jm.Classes > 0 && len(jm.Outputs) > 0 && len(jm.Outputs[0]) != jm.Classes {
		return nil, fmt.Errorf("%w: declared %d classes, got %d", ErrRaggedMatrix, jm.Classes, len(jm.Outputs[0]))
	}
	m, err := FromRows(jm.Outputs)
	if err != nil {
		return nil, err
	}
	m.Normalize()
	return m, nil
}

// WriteJSON encodes m in the form read by ReadJSON.
func WriteJSON(w io.Writer, m *Matrix) error {
	enc := json.NewEncoder(w)
	return enc.Encode(jsonMatrix{Classes: m.NumFeatures(), Outputs: m.Rows()})
}

// ReadText parses one timestep per line of whitespace separated values.
// Blank lines and '#' comments are skipped.
func ReadText(r io.Reader) (*Matrix, error) {
	var rows [][]float32
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: %w %q", lineNum, ErrNonFinite, f)
			}
			row[i] = float32(v)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading matrix: %w", err)
	}
	m, err := FromRows(rows)
	if err != nil {
		return nil, err
	}
	m.Normalize()
	return m, nil
}

// LoadFile reads a matrix, choosing the format from the extension: .json
// is JSON, anything else whitespace text.
func LoadFile(path string) (*Matrix, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix: %w", err)
	}
	defer func() { _ = f.Close() }()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(f)
	}
	return ReadText(f)
}

// SaveFile writes m as JSON to path.
func SaveFile(path string, m *Matrix) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path is user supplied
	if err != nil {
		return fmt.Errorf("failed to create matrix file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteJSON(f, m)
}
