package cache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the xxhash64 of data as a 16-character lowercase hex string.
func Hash(data []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(data), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
