package geocode

import "strings"

// Shorten drops block and building numbers from a Japanese address so the
// remainder can match at neighbourhood granularity. Everything from the first
// full-width digit is removed, then everything from the first ASCII digit.
func Shorten(address string) string {
	if i := strings.IndexFunc(address, isFullWidthDigit); i >= 0 {
		address = address[:i]
	}
	if i := strings.IndexFunc(address, isASCIIDigit); i >= 0 {
		address = address[:i]
	}
	return address
}

func isFullWidthDigit(r rune) bool {
	return r >= '０' && r <= '９'
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
