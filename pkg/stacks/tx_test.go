package stacks

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devnetDeployer = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	testKey        = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f2001"
)

func TestParseContractID(t *testing.T) {
	id, err := ParseContractID(devnetDeployer + ".subscription-engine")
	require.NoError(t, err)
	assert.Equal(t, devnetDeployer, id.Address)
	assert.Equal(t, "subscription-engine", id.Name)
	assert.Equal(t, devnetDeployer+".subscription-engine", id.String())

	for _, bad := range []string{"", "no-dot", devnetDeployer + ".", ".name", "SPBAD.name"} {
		_, err := ParseContractID(bad)
		assert.ErrorIs(t, err, ErrInvalidContractID, bad)
	}
}

func TestNetworkByName(t *testing.T) {
	net, err := NetworkByName("MAINNET")
	require.NoError(t, err)
	assert.Equal(t, Mainnet, net)

	net, err = NetworkByName("devnet")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3999", net.DefaultAPIURL)

	_, err = NetworkByName("regtest")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestTransaction_Serialize(t *testing.T) {
	contract, err := ParseContractID(devnetDeployer + ".subscription-engine")
	require.NoError(t, err)

	sub, err := Principal(devnetDeployer)
	require.NoError(t, err)

	tx := NewContractCall(Testnet, contract, "execute-charge", sub, UInt(2))
	tx.Nonce = 5
	tx.Fee = 10000

	raw, err := tx.Serialize()
	require.NoError(t, err)

	headerLen := 1 + 4 + 1 + 1 + 20 + 8 + 8 + 1 + SignatureLength + 1 + 1 + 4
	payloadLen := 1 + 1 + 20 + 1 + len("subscription-engine") + 1 + len("execute-charge") + 4 + 22 + 17
	require.Len(t, raw, headerLen+payloadLen)

	assert.Equal(t, byte(0x80), raw[0])
	assert.Equal(t, uint32(0x80000000), binary.BigEndian.Uint32(raw[1:5]))
	assert.Equal(t, AuthTypeStandard, raw[5])
	assert.Equal(t, HashModeP2PKH, raw[6])
	assert.Equal(t, uint64(5), binary.BigEndian.Uint64(raw[27:35]))
	assert.Equal(t, uint64(10000), binary.BigEndian.Uint64(raw[35:43]))
	assert.Equal(t, AnchorModeAny, raw[headerLen-6])
	assert.Equal(t, PostConditionModeAllow, raw[headerLen-5])
	assert.Equal(t, PayloadTypeContractCall, raw[headerLen])
}

func TestTransaction_SerializeRejectsBadArgs(t *testing.T) {
	contract, err := ParseContractID(devnetDeployer + ".subscription-engine")
	require.NoError(t, err)

	tx := NewContractCall(Testnet, contract, "execute-charge", nil)
	_, err = tx.Serialize()
	assert.ErrorIs(t, err, ErrUnexpectedType)
}

func TestNewSigner(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, KeyEncodingCompressed, s.keyEncoding)
	assert.Len(t, s.PublicKey(), 33)

	addr := s.Address(Testnet)
	version, hash, err := DecodeAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, AddressVersionTestnetSingleSig, version)
	assert.Equal(t, Hash160(s.PublicKey()), hash)

	u, err := NewSigner("0x" + testKey[:64])
	require.NoError(t, err)
	assert.Equal(t, KeyEncodingUncompressed, u.keyEncoding)
	assert.Len(t, u.PublicKey(), 65)
	assert.NotEqual(t, s.Address(Testnet), u.Address(Testnet))

	for _, bad := range []string{"", "zz", testKey[:62], testKey[:64] + "02"} {
		_, err := NewSigner(bad)
		assert.ErrorIs(t, err, ErrInvalidPrivateKey, bad)
	}
}

func TestSigner_Sign(t *testing.T) {
	s, err := NewSigner(testKey)
	require.NoError(t, err)

	contract, err := ParseContractID(devnetDeployer + ".subscription-engine")
	require.NoError(t, err)

	sub, err := Principal(devnetDeployer)
	require.NoError(t, err)

	tx := NewContractCall(Testnet, contract, "execute-charge", sub, UInt(1))
	tx.Nonce = 12
	tx.Fee = 10000

	require.NoError(t, s.Sign(tx))
	assert.Equal(t, s.hash160, tx.Signer)
	assert.Equal(t, KeyEncodingCompressed, tx.KeyEncoding)

	sigHash, err := tx.initialSigHash()
	require.NoError(t, err)
	presign := presignSigHash(sigHash, AuthTypeStandard, tx.Fee, tx.Nonce)

	// reorder [V || R || S] back to go-ethereum's [R || S || V] and recover
	rsv := make([]byte, SignatureLength)
	copy(rsv, tx.Signature[1:])
	rsv[64] = tx.Signature[0]

	pub, err := crypto.Ecrecover(presign[:], rsv)
	require.NoError(t, err)
	assert.Equal(t, crypto.FromECDSAPub(&s.key.PublicKey), pub)

	// the signature does not cover itself, so the txid changes only with it
	id1, err := tx.TxID()
	require.NoError(t, err)
	tx.Nonce = 13
	require.NoError(t, s.Sign(tx))
	id2, err := tx.TxID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 64)
}

// Signed execute-charge call on testnet: fixed key, nonce 3, fee 10000. The
// key's signer hash 15c31b8c...c775 is the one used across the Stacks
// transaction library's own fixtures.
const (
	vectorKey   = "edf9aee84d9b7abc145504dde6726c64f369d37ee34ded868fabd876c26570bc01"
	vectorRawTx = "8080000000040015c31b8c1c11c515e244b75806bac48d1399c7750000000000000003" +
		"0000000000002710000161eb2866deeb0a9a326298579debb91c3f7449ceb2fb34aea9ada4abe885e939" +
		"61a4d11b0880c2b75c3ed56e6aa2d13777a38ab22d524581d79c35bb8c800ffc030100000000021a6d78" +
		"de7b0625dfbfc16c3a8a5735f6dc3dc3f2ce13737562736372697074696f6e2d656e67696e650e657865" +
		"637574652d63686172676500000002051a7321b74e2b6a7e949e6c4ad313035b16650950170100000000" +
		"000000000000000000000007"
	vectorTxID = "eba403920f4cadd97b1390dc760c74876b387d297259ce936f44dd566b24cc38"
)

func TestTransaction_KnownVector(t *testing.T) {
	s, err := NewSigner(vectorKey)
	require.NoError(t, err)
	assert.Equal(t, "STAW66WC3G8WA5F28JVNG1NTRJ6H76E7EMHDBMBN", s.Address(Testnet))

	contract, err := ParseContractID(devnetDeployer + ".subscription-engine")
	require.NoError(t, err)

	sub, err := Principal("ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5")
	require.NoError(t, err)

	tx := NewContractCall(Testnet, contract, "execute-charge", sub, UInt(7))
	tx.Nonce = 3
	tx.Fee = 10000
	require.NoError(t, s.Sign(tx))

	raw, err := tx.Serialize()
	require.NoError(t, err)
	assert.Equal(t, vectorRawTx, hex.EncodeToString(raw))

	txid, err := tx.TxID()
	require.NoError(t, err)
	assert.Equal(t, vectorTxID, txid)
}
