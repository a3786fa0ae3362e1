package archive

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/depscope/pkg/errors"
)

// Compression identifies a payload's compression by its magic bytes.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	XZ
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXZ   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Detect sniffs the compression format of data.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return Gzip
	case bytes.HasPrefix(data, magicZstd):
		return Zstd
	case bytes.HasPrefix(data, magicXZ):
		return XZ
	default:
		return None
	}
}

// Decompress inflates gzip or zstd payloads and returns anything else
// unchanged. XZ payloads are rejected with a DECOMPRESS_ERROR.
func Decompress(data []byte) ([]byte, error) {
	switch Detect(data) {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecompress, err, "open gzip stream")
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecompress, err, "inflate gzip stream")
		}
		return out, nil

	case Zstd:
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecompress, err, "create zstd decoder")
		}
		defer zr.Close()
		out, err := zr.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecompress, err, "inflate zstd stream")
		}
		return out, nil

	case XZ:
		return nil, errors.New(errors.ErrCodeDecompress, "xz-compressed databases are not supported")

	default:
		return data, nil
	}
}
