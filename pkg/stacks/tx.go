package stacks

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Network holds the chain constants that end up in a serialized transaction
// and in addresses derived for it.
type Network struct {
	Name           string
	TxVersion      byte
	ChainID        uint32
	AddressVersion byte
	DefaultAPIURL  string
}

var (
	Mainnet = Network{
		Name:           "mainnet",
		TxVersion:      0x00,
		ChainID:        0x00000001,
		AddressVersion: AddressVersionMainnetSingleSig,
		DefaultAPIURL:  "https://api.mainnet.hiro.so",
	}
	Testnet = Network{
		Name:           "testnet",
		TxVersion:      0x80,
		ChainID:        0x80000000,
		AddressVersion: AddressVersionTestnetSingleSig,
		DefaultAPIURL:  "https://api.testnet.hiro.so",
	}
	Devnet = Network{
		Name:           "devnet",
		TxVersion:      0x80,
		ChainID:        0x80000000,
		AddressVersion: AddressVersionTestnetSingleSig,
		DefaultAPIURL:  "http://localhost:3999",
	}
)

var ErrUnknownNetwork = fmt.Errorf("unknown network")

// NetworkByName resolves mainnet, testnet or devnet.
func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Mainnet.Name:
		return Mainnet, nil
	case Testnet.Name:
		return Testnet, nil
	case Devnet.Name:
		return Devnet, nil
	default:
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
}

// ContractID is a deployed contract's address.name pair.
type ContractID struct {
	Address string
	Name    string
}

var ErrInvalidContractID = fmt.Errorf("invalid contract identifier")

// ParseContractID parses the address.name form and validates the address.
func ParseContractID(s string) (ContractID, error) {
	addr, name, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found || addr == "" || name == "" {
		return ContractID{}, fmt.Errorf("%w: %q", ErrInvalidContractID, s)
	}

	if _, _, err := DecodeAddress(addr); err != nil {
		return ContractID{}, fmt.Errorf("%w: %q: %s", ErrInvalidContractID, s, err)
	}

	if err := validateName(name); err != nil {
		return ContractID{}, fmt.Errorf("%w: %s", ErrInvalidContractID, err)
	}

	return ContractID{Address: addr, Name: name}, nil
}

func (c ContractID) String() string {
	return c.Address + "." + c.Name
}

const (
	AuthTypeStandard byte = 0x04

	HashModeP2PKH byte = 0x00

	KeyEncodingCompressed   byte = 0x00
	KeyEncodingUncompressed byte = 0x01

	AnchorModeOnChainOnly  byte = 0x01
	AnchorModeOffChainOnly byte = 0x02
	AnchorModeAny          byte = 0x03

	PostConditionModeAllow byte = 0x01
	PostConditionModeDeny  byte = 0x02

	PayloadTypeContractCall byte = 0x02

	SignatureLength = 65
)

// ContractCall is the payload of a contract-call transaction.
type ContractCall struct {
	Contract ContractID
	Function string
	Args     []Value
}

// Transaction is a single-sig contract-call transaction. Post conditions are
// never attached; the keeper relies on the Allow mode.
type Transaction struct {
	Version           byte
	ChainID           uint32
	Signer            [20]byte
	Nonce             uint64
	Fee               uint64
	KeyEncoding       byte
	Signature         [SignatureLength]byte
	AnchorMode        byte
	PostConditionMode byte
	Payload           ContractCall
}

// NewContractCall returns an unsigned transaction for the given network.
func NewContractCall(net Network, contract ContractID, function string, args ...Value) *Transaction {
	return &Transaction{
		Version:           net.TxVersion,
		ChainID:           net.ChainID,
		AnchorMode:        AnchorModeAny,
		PostConditionMode: PostConditionModeAllow,
		Payload: ContractCall{
			Contract: contract,
			Function: function,
			Args:     args,
		},
	}
}

// Serialize encodes the transaction in its wire format.
func (tx *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(tx.Version)
	_ = binary.Write(&buf, binary.BigEndian, tx.ChainID)

	// authorization: standard, single-sig p2pkh spending condition
	buf.WriteByte(AuthTypeStandard)
	buf.WriteByte(HashModeP2PKH)
	buf.Write(tx.Signer[:])
	_ = binary.Write(&buf, binary.BigEndian, tx.Nonce)
	_ = binary.Write(&buf, binary.BigEndian, tx.Fee)
	buf.WriteByte(tx.KeyEncoding)
	buf.Write(tx.Signature[:])

	buf.WriteByte(tx.AnchorMode)
	buf.WriteByte(tx.PostConditionMode)
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))

	if err := tx.Payload.encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (c ContractCall) encode(buf *bytes.Buffer) error {
	version, hash, err := DecodeAddress(c.Contract.Address)
	if err != nil {
		return err
	}

	if err := validateName(c.Contract.Name); err != nil {
		return err
	}

	if err := validateName(c.Function); err != nil {
		return err
	}

	buf.WriteByte(PayloadTypeContractCall)
	buf.WriteByte(version)
	buf.Write(hash[:])
	buf.WriteByte(byte(len(c.Contract.Name)))
	buf.WriteString(c.Contract.Name)
	buf.WriteByte(byte(len(c.Function)))
	buf.WriteString(c.Function)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(c.Args)))

	for _, arg := range c.Args {
		if arg == nil {
			return fmt.Errorf("%w: nil argument to %s", ErrUnexpectedType, c.Function)
		}

		if err := arg.encode(buf); err != nil {
			return err
		}
	}

	return nil
}

// TxID is the sha512/256 digest of the serialized transaction.
func (tx *Transaction) TxID() (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}

	sum := sha512.Sum512_256(raw)

	return hex.EncodeToString(sum[:]), nil
}

// initialSigHash is the txid of the transaction with its spending condition
// cleared: zero nonce, zero fee and an empty signature.
func (tx *Transaction) initialSigHash() ([32]byte, error) {
	cleared := *tx
	cleared.Nonce = 0
	cleared.Fee = 0
	cleared.Signature = [SignatureLength]byte{}

	raw, err := cleared.Serialize()
	if err != nil {
		return [32]byte{}, err
	}

	return sha512.Sum512_256(raw), nil
}

func presignSigHash(sigHash [32]byte, authType byte, fee, nonce uint64) [32]byte {
	buf := make([]byte, 0, 32+1+8+8)
	buf = append(buf, sigHash[:]...)
	buf = append(buf, authType)
	buf = binary.BigEndian.AppendUint64(buf, fee)
	buf = binary.BigEndian.AppendUint64(buf, nonce)

	return sha512.Sum512_256(buf)
}
