package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

var validFormats = []string{FormatText, FormatJSON, FormatYAML, FormatCSV}

// IsValidFormat reports whether format is supported.
func IsValidFormat(format string) bool { return slices.Contains(validFormats, format) }

var csvHeader = []string{"file", "text", "confidence", "words", "width", "rejected", "alternative", "error"}

// FormatLine renders a single line result.
func FormatLine(res *recognizer.LineResult, format string, precision int) (string, error) {
	switch format {
	case FormatJSON:
		bts, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case FormatYAML:
		bts, err := ToYAML(res)
		return string(bts), err
	case FormatCSV:
		return writeCSV([][]string{csvHeader, csvRow("", res, "", precision)})
	case FormatText, "":
		return res.Text + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatBatchResults renders the results of many files.
func formatBatchResults(files []FileResult, format string, precision int) (string, error) {
	switch format {
	case FormatJSON:
		bts, err := json.MarshalIndent(struct {
			Files []FileResult `json:"files"`
		}{Files: files}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case FormatYAML:
		bts, err := ToYAML(struct {
			Files []FileResult `json:"files"`
		}{Files: files})
		return string(bts), err
	case FormatCSV:
		rows := [][]string{csvHeader}
		for _, f := range files {
			rows = append(rows, csvRow(f.File, f.Line, f.Error, precision))
		}
		return writeCSV(rows)
	case FormatText, "":
		return formatText(files, precision), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatText(files []FileResult, precision int) string {
	var out strings.Builder
	for i, f := range files {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "# %s\n", f.File)
		switch {
		case f.Failed():
			fmt.Fprintf(&out, "error: %s\n", f.ErrorText())
		case f.Line.Rejected:
			fmt.Fprintf(&out, "(rejected, confidence %s)\n", formatConfidence(f.Line.Confidence, precision))
		default:
			out.WriteString(f.Line.Text)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func csvRow(file string, res *recognizer.LineResult, fileErr string, precision int) []string {
	if res == nil {
		return []string{file, "", "", "0", "0", "false", "", fileErr}
	}
	errText := fileErr
	if errText == "" {
		errText = res.Error
	}
	return []string{
		file,
		res.Text,
		formatConfidence(res.Confidence, precision),
		strconv.Itoa(len(res.Words)),
		strconv.Itoa(res.Width),
		strconv.FormatBool(res.Rejected),
		res.Alternative,
		errText,
	}
}

func writeCSV(rows [][]string) (string, error) {
	var out strings.Builder
	w := csv.NewWriter(&out)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return out.String(), nil
}

func formatConfidence(c float64, precision int) string {
	return strconv.FormatFloat(c, 'f', precision, 64)
}

// ToYAML marshals v as YAML using its JSON field names, so both formats
// share one schema.
func ToYAML(v any) ([]byte, error) {
	bts, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(bts, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
