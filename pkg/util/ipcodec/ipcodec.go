package ipcodec

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/wingedpig/ipowners/pkg/model"
)

const (
	// Key prefixes for LevelDB
	PrefixMeta  = "meta:"
	PrefixCache = "cache:"
)

// ParseIPv4 converts a dotted-quad string to a big-endian uint32 (a*2^24 + b*2^16 + c*2^8 + d).
// Each octet must be a decimal number in 0..255.
func ParseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidIP, s)
	}

	var n uint32
	for _, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("%w: %q", model.ErrInvalidIP, s)
		}
		octet, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", model.ErrInvalidIP, s)
		}
		n = n<<8 | uint32(octet)
	}
	return n, nil
}

// FormatIPv4 renders a uint32 as a dotted-quad string
func FormatIPv4(n uint32) string {
	return Int32ToIPv4(n).String()
}

// IsInRange checks if an address is within [start, end] inclusive
func IsInRange(ip, start, end uint32) bool {
	return ip >= start && ip <= end
}

// MetaKey creates a metadata key
func MetaKey(suffix string) []byte {
	return []byte(PrefixMeta + suffix)
}

// CacheKey creates a cache key
func CacheKey(category, key string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", PrefixCache, category, key))
}

// Int32ToIPv4 converts a uint32 to an IPv4 address
func Int32ToIPv4(n uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return netip.AddrFrom4(b)
}
