package table

import "math"

// IntSentinel is the value ToSimpleInt returns for tokens that are not
// simple integers. A token whose literal value is exactly this number is
// indistinguishable from the failure case and is therefore stored as bytes,
// never inlined.
const IntSentinel = math.MinInt32

// ToSimpleInt parses token as a canonical decimal int32: an optional minus
// sign followed by digits with no leading zeros, no plus sign, no
// whitespace. It returns IntSentinel if the token is not of that shape or
// does not fit in an int32. Canonical form guarantees that formatting the
// parsed value reproduces the original token.
func ToSimpleInt(token []byte) int32 {
	if len(token) == 0 || len(token) > 11 {
		return IntSentinel
	}
	neg := token[0] == '-'
	digits := token
	if neg {
		digits = token[1:]
	}
	if len(digits) == 0 || len(digits) > 10 {
		return IntSentinel
	}
	// "0" is canonical; "007" and "-0" are not.
	if digits[0] == '0' && (len(digits) > 1 || neg) {
		return IntSentinel
	}
	var v int64
	for _, c := range digits {
		if c < '0' || c > '9' {
			return IntSentinel
		}
		v = v*10 + int64(c-'0')
		if v > -math.MinInt32 {
			return IntSentinel
		}
	}
	if neg {
		v = -v
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return IntSentinel
	}
	return int32(v)
}

// InlineRef encodes an integer value as an inlined text reference.
// The payload is the two's-complement 32-bit value, which keeps the
// OffComp bit clear for negative values.
func InlineRef(v int32) uint64 {
	return uint64(uint32(v)) | OffNum
}

// IsInline reports whether ref holds an inlined integer.
func IsInline(ref uint64) bool {
	return ref&OffNum != 0
}

// IsCompressed reports whether ref points at a compressed token.
// Only meaningful when IsInline(ref) is false.
func IsCompressed(ref uint64) bool {
	return ref&OffComp != 0
}

// InlineValue decodes the integer payload of an inlined reference.
func InlineValue(ref uint64) int32 {
	return int32(uint32(ref))
}

// RefOffset returns the side-file offset of a non-inlined reference.
func RefOffset(ref uint64) uint64 {
	return ref &^ (OffNum | OffComp)
}
