package txhandler

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddrHex = "abcdef0123456789abcdef0123456789abcdef01"

func TestAdd0x(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "0x"},
		{"abc", "0xabc"},
		{"0xabc", "0xabc"},
		{"0Xabc", "0Xabc"},
		{"x", "0xx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Add0x(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Add0x(got), "Add0x should be idempotent")
		})
	}
}

func TestStrip0x(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"0x", ""},
		{"abc", "abc"},
		{"0xabc", "abc"},
		{"0Xabc", "abc"},
		{"0x0xabc", "abc"},
		{"10x", "10x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Strip0x(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Strip0x(got), "Strip0x should be idempotent")
		})
	}
}

func TestIsAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bare", testAddrHex, true},
		{"prefixed", "0x" + testAddrHex, true},
		{"upper case", strings.ToUpper(testAddrHex), true},
		{"too short", testAddrHex[:39], false},
		{"too long", testAddrHex + "0", false},
		{"non hex", "zz" + testAddrHex[2:], false},
		{"contract name", "TokenContract", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAddress(tt.in))
			raw := Strip0x(tt.in)
			assert.Equal(t, len(raw) == 40 && isHex(raw), IsAddress(tt.in))
		})
	}
}

func TestHex2Int(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		values := []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			big.NewInt(255),
			new(big.Int).SetUint64(^uint64(0)),
			new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
		}
		for _, n := range values {
			got, err := Hex2Int("0x" + n.Text(16))
			require.NoError(t, err)
			assert.Zero(t, n.Cmp(got), "want %s, got %s", n, got)
		}
	})

	t.Run("without prefix", func(t *testing.T) {
		got, err := Hex2Int("ff")
		require.NoError(t, err)
		assert.Equal(t, int64(255), got.Int64())
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "0x", "0xzz", "-0x1"} {
			_, err := Hex2Int(in)
			assert.True(t, errors.Is(err, ErrInvalidHex), "input %q: %v", in, err)
		}
	})
}

func TestFormatReference(t *testing.T) {
	tests := []string{testAddrHex, "0x" + testAddrHex, "TokenContract", "", "0x1234"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if IsAddress(in) {
				assert.Equal(t, Add0x(in), FormatReference(in))
			} else {
				assert.Equal(t, in, FormatReference(in))
			}
		})
	}
}

func TestParseWei(t *testing.T) {
	tests := []struct {
		in      string
		want    *big.Int
		wantErr bool
	}{
		{"", nil, false},
		{"1000", big.NewInt(1000), false},
		{" 42 ", big.NewInt(42), false},
		{"0x10", big.NewInt(16), false},
		{"0X10", big.NewInt(16), false},
		{"0", big.NewInt(0), false},
		{"-1", nil, true},
		{"lots", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWei(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Zero(t, tt.want.Cmp(got), "got %s", got)
		})
	}

	_, err := ParseWei("-1")
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{nil, "0"},
		{big.NewInt(0), "0"},
		{weiPerEther, "1"},
		{big.NewInt(1), "0.000000000000000001"},
		{new(big.Int).Mul(big.NewInt(15), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)), "1.5"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.wei), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEther(tt.wei))
		})
	}
}
