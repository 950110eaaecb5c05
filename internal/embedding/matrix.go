package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Matrix persistence: chunk embeddings are cached on disk next to the
// vector index so a rebuild after restart skips re-embedding. The row
// order matches the chunk order; a row-count mismatch with the chunk
// store invalidates the whole file.

const matrixMagic = uint32(0x41475645) // "AGVE"

// SaveMatrix writes rows to path atomically (temp file then rename).
// All rows must share the same dimension.
func SaveMatrix(path string, rows [][]float32) error {
	dims := 0
	if len(rows) > 0 {
		dims = len(rows[0])
	}
	for i, r := range rows {
		if len(r) != dims {
			return fmt.Errorf("row %d has dimension %d, want %d", i, len(r), dims)
		}
	}

	buf := make([]byte, 12+4*len(rows)*dims)
	binary.LittleEndian.PutUint32(buf[0:4], matrixMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(rows)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(dims))
	off := 12
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("failed to write embedding matrix: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadMatrix reads a matrix written by SaveMatrix.
func LoadMatrix(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("embedding matrix file too short")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != matrixMagic {
		return nil, fmt.Errorf("not an embedding matrix file")
	}
	count := int(binary.LittleEndian.Uint32(data[4:8]))
	dims := int(binary.LittleEndian.Uint32(data[8:12]))
	if len(data) != 12+4*count*dims {
		return nil, fmt.Errorf("embedding matrix file truncated")
	}

	rows := make([][]float32, count)
	off := 12
	for i := 0; i < count; i++ {
		row := make([]float32, dims)
		for j := 0; j < dims; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		rows[i] = row
	}
	return rows, nil
}
