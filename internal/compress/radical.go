package compress

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// radicalRadix bounds the stroke count when hashing a radical/stroke pair,
// and offsets the disambiguation index above the stroke codes.
const radicalRadix = 29

// maxRadicalID bounds radical ids so a bad table cannot inflate the code range.
const maxRadicalID = 1 << 16

// RadicalTable maps a Han code point to its [radical, strokes] pair.
type RadicalTable map[rune][]int

// ParseRadicalTable reads lines of the form
//
//	<codepoint> <radical> <strokes> [ignored...]
//
// where codepoint is hex with an optional "U+" prefix. Blank lines and
// lines starting with '#' are skipped.
func ParseRadicalTable(r io.Reader) (RadicalTable, error) {
	table := make(RadicalTable)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w %d: %q", ErrBadRadicalLine, lineNum, line)
		}
		cp, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(fields[0]), "U+"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w %d: code point: %w", ErrBadRadicalLine, lineNum, err)
		}
		radical, err := strconv.Atoi(fields[1])
		if err != nil || radical < 0 || radical >= maxRadicalID {
			return nil, fmt.Errorf("%w %d: radical %q", ErrBadRadicalLine, lineNum, fields[1])
		}
		strokes, err := strconv.Atoi(fields[2])
		if err != nil || strokes < 0 || strokes >= radicalRadix {
			return nil, fmt.Errorf("%w %d: strokes %q", ErrBadRadicalLine, lineNum, fields[2])
		}
		table[rune(cp)] = []int{radical, strokes}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading radical table: %w", err)
	}
	return table, nil
}

// LoadRadicalTable parses the radical table file at path.
func LoadRadicalTable(path string) (RadicalTable, error) {
	f, err := os.Open(path) //nolint:gosec // G304: model asset path
	if err != nil {
		return nil, fmt.Errorf("failed to open radical table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseRadicalTable(f)
}

func radicalPreHash(rs []int) int {
	h := 0
	for _, v := range rs {
		h = h*radicalRadix + v
	}
	return h
}
