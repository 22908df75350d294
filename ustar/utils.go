package ustar

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// nts converts a null-terminated field to a string.
func nts(s []byte) string {
	p := bytes.IndexByte(s, NUL)
	if p != -1 {
		s = s[:p]
	}
	return string(s)
}

// stn converts a string to a null-padded field of the given length.
func stn(s string, length int) []byte {
	b := []byte(s)
	if len(b) > length {
		b = b[:length]
	}
	return append(b, make([]byte, length-len(b))...)
}

// nti parses an octal number field. Empty fields decode as zero.
func nti(s []byte) (int64, error) {
	str := string(bytes.Trim(s, " \x00"))
	if str == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(str, 8, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrHeaderCorrupt, "invalid octal field %q", str)
	}
	return n, nil
}

// itn formats n as a zero-padded octal field of the given width, leaving
// the last byte for the null terminator.
func itn(n int64, digits int) ([]byte, error) {
	if n < 0 || n >= 1<<(3*uint(digits-1)) {
		return nil, errors.Wrapf(ErrHeaderCorrupt, "%d overflows %d-digit octal field", n, digits-1)
	}
	octal := fmt.Sprintf("%0*o", digits-1, n)
	return append([]byte(octal), NUL), nil
}

// calcChecksum sums all 512 header bytes, treating the checksum field
// itself as ASCII spaces.
func calcChecksum(buf []byte) int64 {
	sum := int64(8 * ' ') // the blanked checksum field
	for i, b := range buf {
		if i >= posChksum && i < posChksum+8 {
			continue
		}
		sum += int64(b)
	}
	return sum
}

func divmod(a, b int64) (int64, int64) {
	return a / b, a % b
}
