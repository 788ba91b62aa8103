package txhandler

import (
	"fmt"
	"math/big"
	"strings"
)

// addressHexLen is the length of an address without its 0x prefix.
const addressHexLen = 40

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// hasHexPrefix reports whether s starts with 0x or 0X.
func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Add0x prefixes s with 0x unless it already carries a hex prefix.
func Add0x(s string) string {
	if hasHexPrefix(s) {
		return s
	}
	return "0x" + s
}

// Strip0x removes every leading hex prefix from s, so that
// Strip0x(Strip0x(s)) == Strip0x(s).
func Strip0x(s string) string {
	for hasHexPrefix(s) {
		s = s[2:]
	}
	return s
}

// IsAddress reports whether s, once stripped of its prefix, is exactly 40
// hex characters.
func IsAddress(s string) bool {
	raw := Strip0x(s)
	if len(raw) != addressHexLen {
		return false
	}
	return isHex(raw)
}

// FormatReference returns the prefixed form of s when s is an address and s
// unchanged otherwise.
func FormatReference(s string) string {
	if IsAddress(s) {
		return Add0x(s)
	}
	return s
}

// Hex2Int parses a hex quantity such as the ones returned by the node.
func Hex2Int(s string) (*big.Int, error) {
	raw := Strip0x(strings.TrimSpace(s))
	if raw == "" || !isHex(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return n, nil
}

// ParseWei reads a wei amount in decimal or 0x-prefixed hex. An empty
// string is no amount and returns nil.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeValue, s)
	}
	return n, nil
}

// FormatEther renders a wei amount in ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
