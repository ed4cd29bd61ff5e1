package forecast

import (
	"regexp"
	"strings"
)

// NoSize is the bucket for SKUs without a recognizable size suffix.
const NoSize = "NO_SIZE"

var skuSeparators = regexp.MustCompile(`[-_]+`)

var sizeTokens = map[string]string{
	"xs":   "XS",
	"s":    "S",
	"m":    "M",
	"l":    "L",
	"xl":   "XL",
	"xxl":  "XXL",
	"2xl":  "XXL",
	"xxxl": "XXXL",
	"3xl":  "XXXL",
	"4xl":  "4XL",
	"5xl":  "5XL",
	"free": "FREE",
	"fs":   "FS",
}

var sizeRank = map[string]int{
	"XS":   1,
	"S":    2,
	"M":    3,
	"L":    4,
	"XL":   5,
	"XXL":  6,
	"XXXL": 7,
	"4XL":  8,
	"5XL":  9,
	"FREE": 10,
	"FS":   11,
	NoSize: 99,
}

// ExtractSize reads the size from the last "-" or "_" separated token of a
// seller SKU, e.g. "abc-red-xl" -> "XL".
func ExtractSize(sku string) string {
	s := strings.ToLower(strings.TrimSpace(sku))
	if s == "" {
		return NoSize
	}
	parts := skuSeparators.Split(s, -1)
	last := strings.TrimSpace(parts[len(parts)-1])
	if size, ok := sizeTokens[last]; ok {
		return size
	}
	return NoSize
}

// SizeRank orders sizes from smallest to largest; unknown labels sort between
// the known sizes and NO_SIZE.
func SizeRank(size string) int {
	if r, ok := sizeRank[size]; ok {
		return r
	}
	return 50
}
