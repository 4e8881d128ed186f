package batch

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/recode/internal/recognizer"
)

func line(text string, conf float64) *recognizer.LineResult {
	return &recognizer.LineResult{Text: text, RawText: text, Confidence: conf, Width: 10, Mode: recognizer.ModeBeam}
}

func TestFormatLine(t *testing.T) {
	res := line("hello", 0.91234)

	out, err := FormatLine(res, FormatText, 2)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = FormatLine(res, FormatJSON, 2)
	require.NoError(t, err)
	var decoded recognizer.LineResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "hello", decoded.Text)

	out, err = FormatLine(res, FormatYAML, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "raw_text: hello")

	out, err = FormatLine(res, FormatCSV, 3)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Equal(t, ",hello,0.912,0,10,false,,", lines[1])

	_, err = FormatLine(res, "xml", 2)
	require.Error(t, err)
}

func TestFormatBatchResults_Text(t *testing.T) {
	rejected := line("", 0.2)
	rejected.Rejected = true
	files := []FileResult{
		{File: "/m/one.json", Line: line("first line", 0.9)},
		{File: "/m/two.json", Error: "failed to open matrix"},
		{File: "/m/three.json", Line: rejected},
	}

	out, err := formatBatchResults(files, FormatText, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "# /m/one.json\nfirst line\n")
	assert.Contains(t, out, "# /m/two.json\nerror: failed to open matrix\n")
	assert.Contains(t, out, "(rejected, confidence 0.20)")
}

func TestFormatBatchResults_Structured(t *testing.T) {
	files := []FileResult{{File: "/m/one.json", Line: line("abc", 0.5), DurationMs: 1.5}}

	out, err := formatBatchResults(files, FormatJSON, 2)
	require.NoError(t, err)
	assert.Contains(t, out, `"file": "/m/one.json"`)
	assert.Contains(t, out, `"text": "abc"`)

	out, err = formatBatchResults(files, FormatYAML, 2)
	require.NoError(t, err)
	var doc struct {
		Files []struct {
			File string `yaml:"file"`
			Line struct {
				Text string `yaml:"text"`
			} `yaml:"line"`
		} `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "abc", doc.Files[0].Line.Text)

	out, err = formatBatchResults(files, FormatCSV, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "/m/one.json,abc,0.5,0,10,false,,")
}

func TestFormatBatchResults_CSVFailure(t *testing.T) {
	files := []FileResult{{File: "/m/bad.json", Error: "boom"}}
	out, err := formatBatchResults(files, FormatCSV, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "/m/bad.json,,,0,0,false,,boom")
}

func TestIsValidFormat(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, FormatYAML, FormatCSV} {
		assert.True(t, IsValidFormat(f), f)
	}
	assert.False(t, IsValidFormat("pdf"))
}
