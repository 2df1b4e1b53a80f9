package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Staker and custodian identities are 20-byte account identifiers rendered as
// 0x-prefixed hex. The service treats them as opaque strings but normalizes
// casing so the same account never appears under two spellings.
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress checks if the given string is a 0x-prefixed 20-byte hex address.
// Note: it does not check any checksum encoding of the address.
func IsValidAddress(address string) bool {
	return addressRegex.MatchString(address)
}

// NormalizeAddress validates the address format and returns it lowercased.
func NormalizeAddress(address string) (string, error) {
	if !IsValidAddress(address) {
		return "", fmt.Errorf("invalid address: %s", address)
	}
	return strings.ToLower(address), nil
}

// ParseBigInt parses a non-negative integer from its decimal string form.
// Amounts and rates travel as decimal strings so that JSON consumers without
// arbitrary-precision numbers can handle them losslessly.
func ParseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty integer string")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer string: %s", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative integer not allowed: %s", s)
	}
	return v, nil
}
