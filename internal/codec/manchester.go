package codec

import (
	"github.com/skypro1111/covertaudio/internal/bitio"
)

const (
	manchesterOne  = 0b10
	manchesterZero = 0b01
)

// Manchester encodes each bit as a transition: 1 becomes 10 and 0 becomes 01.
type Manchester struct{}

// NewManchester returns a Manchester codec.
func NewManchester() *Manchester {
	return &Manchester{}
}

func (m *Manchester) Name() string       { return "manchester" }
func (m *Manchester) BlockLength() int   { return 2 }
func (m *Manchester) MessageLength() int { return 1 }

// Encode doubles the size of data.
func (m *Manchester) Encode(data []byte) ([]byte, error) {
	stream := bitio.NewStream(data, false)
	packer := bitio.NewPacker()

	for {
		bit, read, _ := stream.ReadUint(1)
		if read == 0 {
			break
		}

		symbol := uint64(manchesterZero)
		if bit == 1 {
			symbol = manchesterOne
		}
		if err := packer.WriteBits(symbol, 2); err != nil {
			return nil, err
		}
	}

	return packer.Bytes(), nil
}

// Decode halves the size of data. A pair that is neither 10 nor 01 decodes to 1
// and flags the output byte holding it. An output byte is also flagged when
// either of the input bytes it came from was flagged in mask.
func (m *Manchester) Decode(data []byte, mask ErrorMask) (Result, error) {
	stream := bitio.NewStream(data, false)
	packer := bitio.NewPacker()
	errs := make(ErrorMask, (len(data)*4+7)/8)
	flagged := 0

	for position := 0; ; position++ {
		symbol, read, _ := stream.ReadUint(2)
		if read < 2 {
			break
		}

		bit := uint64(1)
		switch symbol {
		case manchesterOne:
		case manchesterZero:
			bit = 0
		default:
			flagged++
			if b := position / 8; b < len(errs) {
				errs[b] = true
			}
		}

		if err := packer.WriteBits(bit, 1); err != nil {
			return Result{}, err
		}
	}

	for i := range errs {
		if mask.Flagged(2*i) || mask.Flagged(2*i+1) {
			errs[i] = true
		}
	}

	return Result{
		Data:   packer.Bytes(),
		Errors: errs,
		Report: Report{Codec: m.Name(), FlaggedSymbols: flagged},
	}, nil
}
