package stacks

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Address versions for single-sig and multi-sig principals.
const (
	AddressVersionMainnetSingleSig byte = 22
	AddressVersionMainnetMultiSig  byte = 20
	AddressVersionTestnetSingleSig byte = 26
	AddressVersionTestnetMultiSig  byte = 21
)

var (
	ErrInvalidC32Character = fmt.Errorf("invalid c32 character")
	ErrInvalidChecksum     = fmt.Errorf("c32check checksum mismatch")
	ErrInvalidAddress      = fmt.Errorf("invalid stacks address")
)

var big32 = big.NewInt(32)

// c32Encode encodes data as a big-endian base32 number in the crockford
// alphabet. Every leading zero byte is kept as a single leading '0'.
func c32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(data)
	mod := new(big.Int)

	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, big32, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return strings.Repeat("0", zeros) + string(digits)
}

func c32Normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	s = strings.ReplaceAll(s, "I", "1")

	return s
}

func c32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)

	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	for i := zeros; i < len(s); i++ {
		idx := strings.IndexByte(c32Alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidC32Character, s[i])
		}

		n.Mul(n, big32)
		n.Add(n, big.NewInt(int64(idx)))
	}

	out := make([]byte, zeros, zeros+len(n.Bytes()))

	return append(out, n.Bytes()...), nil
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])

	return second[:4]
}

// C32CheckEncode encodes data with a version character and a 4 byte
// double-sha256 checksum.
func C32CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", fmt.Errorf("%w: version %d out of range", ErrInvalidAddress, version)
	}

	payload := make([]byte, 0, len(data)+4)
	payload = append(payload, data...)
	payload = append(payload, c32Checksum(version, data)...)

	return string(c32Alphabet[version]) + c32Encode(payload), nil
}

// C32CheckDecode reverses C32CheckEncode and verifies the checksum.
func C32CheckDecode(s string) (byte, []byte, error) {
	if len(s) < 2 {
		return 0, nil, fmt.Errorf("%w: input too short", ErrInvalidAddress)
	}

	s = c32Normalize(s)

	version := strings.IndexByte(c32Alphabet, s[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidC32Character, s[0])
	}

	decoded, err := c32Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}

	if len(decoded) < 4 {
		return 0, nil, fmt.Errorf("%w: payload too short", ErrInvalidAddress)
	}

	data, sum := decoded[:len(decoded)-4], decoded[len(decoded)-4:]
	if !bytes.Equal(sum, c32Checksum(byte(version), data)) {
		return 0, nil, ErrInvalidChecksum
	}

	return byte(version), data, nil
}

// EncodeAddress renders a version and hash160 as an 'S' prefixed address.
func EncodeAddress(version byte, hash160 [20]byte) (string, error) {
	enc, err := C32CheckEncode(version, hash160[:])
	if err != nil {
		return "", err
	}

	return "S" + enc, nil
}

// DecodeAddress parses an 'S' prefixed address into its version and hash160.
func DecodeAddress(address string) (byte, [20]byte, error) {
	var hash [20]byte

	if len(address) < 3 || (address[0] != 'S' && address[0] != 's') {
		return 0, hash, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	version, data, err := C32CheckDecode(address[1:])
	if err != nil {
		return 0, hash, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	if len(data) != 20 {
		return 0, hash, fmt.Errorf("%w: hash160 has %d bytes", ErrInvalidAddress, len(data))
	}

	copy(hash[:], data)

	return version, hash, nil
}

// Hash160Hex is a helper for logging and tests.
func Hash160Hex(hash [20]byte) string {
	return hex.EncodeToString(hash[:])
}
