package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/dshills/census-mcp/pkg/manifold"
)

var (
	// ErrMatrixEntry is returned for an entry outside the signed byte range
	ErrMatrixEntry = errors.New("matrix entry out of range")
	// ErrPermField is returned for a permutation field outside [0,15]
	ErrPermField = errors.New("permutation field out of range")
)

// permFields is how many 4-bit fields fit in the perm column.
const permFields = 16

// DecodeMatrices reads 2x2 matrices stored as signed bytes, row-major, four
// bytes per matrix.
func DecodeMatrices(data []byte) ([]manifold.Matrix, error) {
	if len(data)%MatrixSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of matrices",
			ErrTruncated, len(data))
	}
	cobs := make([]manifold.Matrix, 0, len(data)/MatrixSize)
	for i := 0; i < len(data); i += MatrixSize {
		cobs = append(cobs, manifold.Matrix{
			{int(int8(data[i])), int(int8(data[i+1]))},
			{int(int8(data[i+2])), int(int8(data[i+3]))},
		})
	}
	return cobs, nil
}

// EncodeMatrices is the inverse of DecodeMatrices.
func EncodeMatrices(cobs []manifold.Matrix) ([]byte, error) {
	out := make([]byte, 0, MatrixSize*len(cobs))
	for n, m := range cobs {
		for _, row := range m {
			for _, v := range row {
				if v < math.MinInt8 || v > math.MaxInt8 {
					return nil, fmt.Errorf("%w: matrix %d has entry %d", ErrMatrixEntry, n, v)
				}
				out = append(out, byte(int8(v)))
			}
		}
	}
	return out, nil
}

// DecodePermutation unpacks a perm column value into numCusps 4-bit fields,
// field n being (value >> 4n) & 0xF. Zero means the identity and yields nil.
func DecodePermutation(value int64, numCusps int) []int {
	if value == 0 {
		return nil
	}
	bits := uint64(value)
	perm := make([]int, numCusps)
	for n := range perm {
		if n < permFields {
			perm[n] = int((bits >> (4 * uint(n))) & 0xF)
		}
	}
	return perm
}

// EncodePermutation packs up to 16 fields in [0,15] into a perm column value.
func EncodePermutation(perm []int) (int64, error) {
	if len(perm) > permFields {
		return 0, fmt.Errorf("%w: %d fields do not fit in 64 bits", ErrPermField, len(perm))
	}
	var bits uint64
	for n, v := range perm {
		if v < 0 || v > 0xF {
			return 0, fmt.Errorf("%w: field %d is %d", ErrPermField, n, v)
		}
		bits |= uint64(v) << (4 * uint(n))
	}
	return int64(bits), nil
}
