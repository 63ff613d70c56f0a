package stacks

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

var ErrInvalidPrivateKey = fmt.Errorf("invalid private key")

// Signer signs single-sig transactions with a secp256k1 key.
type Signer struct {
	key         *ecdsa.PrivateKey
	publicKey   []byte
	hash160     [20]byte
	keyEncoding byte
}

// NewSigner parses a hex private key. A 33 byte key ending in 0x01 signals a
// compressed public key; a bare 32 byte key signals an uncompressed one.
func NewSigner(privateKey string) (*Signer, error) {
	raw := strings.TrimSpace(privateKey)
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}

	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}

	encoding := KeyEncodingUncompressed

	switch {
	case len(b) == 33 && b[32] == 0x01:
		encoding = KeyEncodingCompressed
		b = b[:32]
	case len(b) == 32:
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidPrivateKey, len(b))
	}

	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}

	var pub []byte
	if encoding == KeyEncodingCompressed {
		pub = crypto.CompressPubkey(&key.PublicKey)
	} else {
		pub = crypto.FromECDSAPub(&key.PublicKey)
	}

	return &Signer{
		key:         key,
		publicKey:   pub,
		hash160:     Hash160(pub),
		keyEncoding: encoding,
	}, nil
}

// Hash160 is ripemd160(sha256(b)).
func Hash160(b []byte) [20]byte {
	var out [20]byte

	sha := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sha[:])
	copy(out[:], h.Sum(nil))

	return out
}

// PublicKey returns the encoded public key used for the signer hash.
func (s *Signer) PublicKey() []byte {
	return append([]byte(nil), s.publicKey...)
}

// Address returns the signer's single-sig address for the network.
func (s *Signer) Address(net Network) string {
	addr, _ := EncodeAddress(net.AddressVersion, s.hash160)

	return addr
}

// Sign fills the spending condition of tx and signs it. Nonce and Fee must be
// set before calling Sign.
func (s *Signer) Sign(tx *Transaction) error {
	tx.Signer = s.hash160
	tx.KeyEncoding = s.keyEncoding

	sigHash, err := tx.initialSigHash()
	if err != nil {
		return err
	}

	presign := presignSigHash(sigHash, AuthTypeStandard, tx.Fee, tx.Nonce)

	// go-ethereum returns [R || S || V]; the chain expects [V || R || S]
	sig, err := crypto.Sign(presign[:], s.key)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}

	tx.Signature[0] = sig[64]
	copy(tx.Signature[1:], sig[:64])

	return nil
}
