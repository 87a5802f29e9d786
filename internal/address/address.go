// Package address classifies token addresses by chain family.
package address

import (
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// Kind is the chain family an address belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindSolana
	KindEVM
	KindSui
)

func (k Kind) String() string {
	switch k {
	case KindSolana:
		return "solana"
	case KindEVM:
		return "evm"
	case KindSui:
		return "sui"
	default:
		return "unknown"
	}
}

// ErrInvalid is returned by ParseSolana for anything that is not a 32-byte base58 key.
var ErrInvalid = errors.New("invalid address")

// Classify reports which chain family address looks like. It does no I/O.
func Classify(address string) Kind {
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return KindUnknown
	case strings.Contains(address, "::"):
		// Sui coin types, e.g. 0x2::sui::SUI
		if strings.HasPrefix(address, "0x") {
			return KindSui
		}
		return KindUnknown
	case strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X"):
		hex := address[2:]
		if !isHex(hex) {
			return KindUnknown
		}
		switch len(hex) {
		case 40:
			return KindEVM
		case 64:
			return KindSui
		}
		return KindUnknown
	}
	if _, err := ParseSolana(address); err == nil {
		return KindSolana
	}
	return KindUnknown
}

// ParseSolana decodes a base58 Solana public key.
func ParseSolana(address string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(address)
	if err != nil {
		return out, ErrInvalid
	}
	if len(raw) != len(out) {
		return out, ErrInvalid
	}
	copy(out[:], raw)
	return out, nil
}

// Short returns the first n characters of address, or all of it when shorter.
func Short(address string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(address)
	if len(r) <= n {
		return address
	}
	return string(r[:n])
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
