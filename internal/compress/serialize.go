package compress

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// maxSerializedRows guards against reading a garbage row count.
const maxSerializedRows = 1 << 24

// Serialize writes the encoder as a little-endian int32 row count followed
// by one (int8 self-normalized, int32 length, int32 codes...) row per symbol.
func (c *Compressor) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(c.encoder))); err != nil {
		return fmt.Errorf("failed to write row count: %w", err)
	}
	for _, code := range c.encoder {
		var flag int8
		if code.SelfNormalized() {
			flag = 1
		}
		row := make([]int32, code.Len())
		for i := range row {
			row[i] = int32(code.At(i)) //nolint:gosec // G115: codes are bounded by the alphabet size
		}
		if err := binary.Write(bw, binary.LittleEndian, flag); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(len(row))); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return bw.Flush()
}

// DeSerialize replaces the encoder with one read from r and rebuilds the
// decoder tables. On error the Compressor is unchanged.
func (c *Compressor) DeSerialize(r io.Reader) error {
	br := bufio.NewReader(r)
	var n int32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: row count: %w", ErrBadEncoding, err)
	}
	if n < 0 || n > maxSerializedRows {
		return fmt.Errorf("%w: row count %d", ErrBadEncoding, n)
	}
	// A compacted code space never exceeds one code per position per row.
	codeLimit := int64(n) * MaxCodeLen
	encoder := make([]RecodedCharID, n)
	for i := range encoder {
		var flag int8
		var length int32
		if err := binary.Read(br, binary.LittleEndian, &flag); err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrBadEncoding, i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrBadEncoding, i, err)
		}
		if length < 0 || length > MaxCodeLen {
			return fmt.Errorf("%w: row %d has length %d", ErrBadEncoding, i, length)
		}
		row := make([]int32, length)
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("%w: row %d: %w", ErrBadEncoding, i, err)
		}
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("%w: row %d has negative code", ErrBadEncoding, i)
			}
			if int64(v) >= codeLimit {
				return fmt.Errorf("%w: row %d has code %d, limit %d", ErrBadEncoding, i, v, codeLimit)
			}
			encoder[i].Set(j, int(v))
		}
		encoder[i].SetSelfNormalized(flag != 0)
	}
	fresh := &Compressor{}
	fresh.install(encoder)
	fresh.setupDecoder()
	*c = *fresh
	return nil
}

// Save writes the encoder to path.
func (c *Compressor) Save(path string) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path is user supplied
	if err != nil {
		return fmt.Errorf("failed to create encoding file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close encoding file: %w", cerr)
		}
	}()
	return c.Serialize(f)
}

// Load reads a Compressor from path.
func Load(path string) (*Compressor, error) {
	f, err := os.Open(path) //nolint:gosec // G304: model asset path
	if err != nil {
		return nil, fmt.Errorf("failed to open encoding file: %w", err)
	}
	defer func() { _ = f.Close() }()
	c := New()
	if err := c.DeSerialize(f); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return c, nil
}
