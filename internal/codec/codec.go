package codec

import (
	"errors"
	"fmt"

	"github.com/dshills/census-mcp/pkg/manifold"
)

// Header bits of the first byte of a triangulation blob.
const (
	UseCobsFlag   byte = 1 << 7
	UseStringFlag byte = 1 << 6
	CuspMask      byte = 0x3F

	// MaxCusps is the largest cusp count the header can carry.
	MaxCusps = int(CuspMask)

	// MatrixSize is the number of encoded bytes per change-of-basis matrix.
	MatrixSize = 4
)

var (
	// ErrTruncated is returned when a blob is too short for its header or
	// matrix block
	ErrTruncated = errors.New("triangulation blob truncated")
	// ErrTooManyCusps is returned when encoding more cusps than the header holds
	ErrTooManyCusps = errors.New("cusp count exceeds header capacity")
	// ErrCobsMismatch is returned when the matrix count differs from the cusp count
	ErrCobsMismatch = errors.New("change-of-basis count does not match cusp count")
)

// MatrixDecoder turns an encoded matrix block into one matrix per cusp.
type MatrixDecoder func(data []byte) ([]manifold.Matrix, error)

// Payload is the decoded content of a triangulation column.
type Payload struct {
	UseCobs   bool
	UseString bool
	NumCusps  int
	Cobs      []manifold.Matrix // nil unless UseCobs and not UseString
	Body      []byte
}

// Header packs the flags and cusp count into the leading byte.
func (p Payload) Header() byte {
	h := byte(p.NumCusps) & CuspMask
	if p.UseCobs {
		h |= UseCobsFlag
	}
	if p.UseString {
		h |= UseStringFlag
	}
	return h
}

// Decode splits a blob into its header fields, change-of-basis matrices and
// triangulation body. Flags are trusted as written; a nil dec uses
// DecodeMatrices.
func Decode(blob []byte, dec MatrixDecoder) (Payload, error) {
	if len(blob) == 0 {
		return Payload{}, ErrTruncated
	}
	if dec == nil {
		dec = DecodeMatrices
	}

	header := blob[0]
	p := Payload{
		UseCobs:   header&UseCobsFlag != 0,
		UseString: header&UseStringFlag != 0,
		NumCusps:  int(header & CuspMask),
	}

	if p.UseString || !p.UseCobs {
		p.Body = blob[1:]
		return p, nil
	}

	end := 1 + MatrixSize*p.NumCusps
	if len(blob) < end {
		return Payload{}, fmt.Errorf("%w: need %d bytes for %d matrices, have %d",
			ErrTruncated, end, p.NumCusps, len(blob))
	}
	cobs, err := dec(blob[1:end])
	if err != nil {
		return Payload{}, fmt.Errorf("failed to decode matrices: %w", err)
	}
	if len(cobs) != p.NumCusps {
		return Payload{}, fmt.Errorf("%w: header says %d, decoded %d",
			ErrCobsMismatch, p.NumCusps, len(cobs))
	}
	p.Cobs = cobs
	p.Body = blob[end:]
	return p, nil
}

// Encode is the inverse of Decode.
func Encode(p Payload) ([]byte, error) {
	if p.NumCusps < 0 || p.NumCusps > MaxCusps {
		return nil, fmt.Errorf("%w: %d", ErrTooManyCusps, p.NumCusps)
	}

	withMatrices := p.UseCobs && !p.UseString
	if withMatrices && len(p.Cobs) != p.NumCusps {
		return nil, fmt.Errorf("%w: %d cusps, %d matrices",
			ErrCobsMismatch, p.NumCusps, len(p.Cobs))
	}

	size := 1 + len(p.Body)
	if withMatrices {
		size += MatrixSize * p.NumCusps
	}
	blob := make([]byte, 0, size)
	blob = append(blob, p.Header())
	if withMatrices {
		block, err := EncodeMatrices(p.Cobs)
		if err != nil {
			return nil, err
		}
		blob = append(blob, block...)
	}
	return append(blob, p.Body...), nil
}
