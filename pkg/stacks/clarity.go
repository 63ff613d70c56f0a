package stacks

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TypeID is the leading byte of a consensus-serialized Clarity value.
type TypeID byte

const (
	TypeInt               TypeID = 0x00
	TypeUInt              TypeID = 0x01
	TypeBuffer            TypeID = 0x02
	TypeBoolTrue          TypeID = 0x03
	TypeBoolFalse         TypeID = 0x04
	TypeStandardPrincipal TypeID = 0x05
	TypeContractPrincipal TypeID = 0x06
	TypeResponseOk        TypeID = 0x07
	TypeResponseErr       TypeID = 0x08
	TypeOptionalNone      TypeID = 0x09
	TypeOptionalSome      TypeID = 0x0a
	TypeList              TypeID = 0x0b
	TypeTuple             TypeID = 0x0c
	TypeStringASCII       TypeID = 0x0d
	TypeStringUTF8        TypeID = 0x0e
)

const maxNameLength = 128

var (
	ErrUnexpectedType   = fmt.Errorf("unexpected clarity type")
	ErrTruncatedValue   = fmt.Errorf("truncated clarity value")
	ErrUnknownTypeID    = fmt.Errorf("unknown clarity type id")
	ErrValueOutOfRange  = fmt.Errorf("clarity value out of range")
	ErrMissingTupleKey  = fmt.Errorf("missing tuple key")
	ErrInvalidName      = fmt.Errorf("invalid clarity name")
	ErrResponseErr      = fmt.Errorf("clarity response is err")
	ErrTrailingBytes    = fmt.Errorf("trailing bytes after clarity value")
	maxUInt128          = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	minInt128           = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128           = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	twoPow128           = new(big.Int).Lsh(big.NewInt(1), 128)
	defaultMaxListItems = uint32(1 << 20)
)

// Value is a Clarity value that can be passed to or returned from a contract
// function.
type Value interface {
	Type() TypeID
	encode(*bytes.Buffer) error
}

type IntValue struct{ V *big.Int }

type UIntValue struct{ V *big.Int }

type BoolValue bool

type BufferValue []byte

type StringASCIIValue string

type StringUTF8Value string

type StandardPrincipalValue struct {
	Version byte
	Hash160 [20]byte
}

type ContractPrincipalValue struct {
	StandardPrincipalValue
	Name string
}

type ResponseValue struct {
	Ok    bool
	Value Value
}

// OptionalValue with a nil Value is 'none'.
type OptionalValue struct {
	Value Value
}

type ListValue []Value

type TupleValue map[string]Value

func (IntValue) Type() TypeID { return TypeInt }
func (UIntValue) Type() TypeID { return TypeUInt }
func (BufferValue) Type() TypeID { return TypeBuffer }
func (StringASCIIValue) Type() TypeID { return TypeStringASCII }
func (StringUTF8Value) Type() TypeID { return TypeStringUTF8 }
func (ListValue) Type() TypeID { return TypeList }
func (TupleValue) Type() TypeID { return TypeTuple }
func (StandardPrincipalValue) Type() TypeID {
	return TypeStandardPrincipal
}
func (ContractPrincipalValue) Type() TypeID {
	return TypeContractPrincipal
}

func (v BoolValue) Type() TypeID {
	if v {
		return TypeBoolTrue
	}

	return TypeBoolFalse
}

func (v ResponseValue) Type() TypeID {
	if v.Ok {
		return TypeResponseOk
	}

	return TypeResponseErr
}

func (v OptionalValue) Type() TypeID {
	if v.Value == nil {
		return TypeOptionalNone
	}

	return TypeOptionalSome
}

// UInt builds a Clarity uint from a uint64.
func UInt(v uint64) UIntValue {
	return UIntValue{V: new(big.Int).SetUint64(v)}
}

// Int builds a Clarity int from an int64.
func Int(v int64) IntValue {
	return IntValue{V: big.NewInt(v)}
}

func Bool(v bool) BoolValue {
	return BoolValue(v)
}

func Some(v Value) OptionalValue {
	return OptionalValue{Value: v}
}

func None() OptionalValue {
	return OptionalValue{}
}

func Ok(v Value) ResponseValue {
	return ResponseValue{Ok: true, Value: v}
}

func Err(v Value) ResponseValue {
	return ResponseValue{Ok: false, Value: v}
}

// Principal parses either a standard principal ("SP...") or a contract
// principal ("SP....name").
func Principal(s string) (Value, error) {
	if addr, name, found := strings.Cut(s, "."); found {
		version, hash, err := DecodeAddress(addr)
		if err != nil {
			return nil, err
		}

		if err := validateName(name); err != nil {
			return nil, err
		}

		return ContractPrincipalValue{
			StandardPrincipalValue: StandardPrincipalValue{Version: version, Hash160: hash},
			Name:                   name,
		}, nil
	}

	version, hash, err := DecodeAddress(s)
	if err != nil {
		return nil, err
	}

	return StandardPrincipalValue{Version: version, Hash160: hash}, nil
}

// String returns the c32check address for the principal.
func (p StandardPrincipalValue) String() string {
	addr, err := EncodeAddress(p.Version, p.Hash160)
	if err != nil {
		return fmt.Sprintf("S?%x", p.Hash160)
	}

	return addr
}

func (p ContractPrincipalValue) String() string {
	return p.StandardPrincipalValue.String() + "." + p.Name
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

func (v IntValue) encode(buf *bytes.Buffer) error {
	if v.V == nil || v.V.Cmp(minInt128) < 0 || v.V.Cmp(maxInt128) > 0 {
		return fmt.Errorf("%w: int %v", ErrValueOutOfRange, v.V)
	}

	n := new(big.Int).Set(v.V)
	if n.Sign() < 0 {
		n.Add(n, twoPow128)
	}

	buf.WriteByte(byte(TypeInt))
	buf.Write(n.FillBytes(make([]byte, 16)))

	return nil
}

func (v UIntValue) encode(buf *bytes.Buffer) error {
	if v.V == nil || v.V.Sign() < 0 || v.V.Cmp(maxUInt128) > 0 {
		return fmt.Errorf("%w: uint %v", ErrValueOutOfRange, v.V)
	}

	buf.WriteByte(byte(TypeUInt))
	buf.Write(v.V.FillBytes(make([]byte, 16)))

	return nil
}

func (v BoolValue) encode(buf *bytes.Buffer) error {
	buf.WriteByte(byte(v.Type()))

	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, id TypeID, data []byte) {
	buf.WriteByte(byte(id))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

func (v BufferValue) encode(buf *bytes.Buffer) error {
	writeLengthPrefixed(buf, TypeBuffer, v)

	return nil
}

func (v StringASCIIValue) encode(buf *bytes.Buffer) error {
	writeLengthPrefixed(buf, TypeStringASCII, []byte(v))

	return nil
}

func (v StringUTF8Value) encode(buf *bytes.Buffer) error {
	writeLengthPrefixed(buf, TypeStringUTF8, []byte(v))

	return nil
}

func (p StandardPrincipalValue) encode(buf *bytes.Buffer) error {
	buf.WriteByte(byte(TypeStandardPrincipal))
	buf.WriteByte(p.Version)
	buf.Write(p.Hash160[:])

	return nil
}

func (p ContractPrincipalValue) encode(buf *bytes.Buffer) error {
	if err := validateName(p.Name); err != nil {
		return err
	}

	buf.WriteByte(byte(TypeContractPrincipal))
	buf.WriteByte(p.Version)
	buf.Write(p.Hash160[:])
	buf.WriteByte(byte(len(p.Name)))
	buf.WriteString(p.Name)

	return nil
}

func (v ResponseValue) encode(buf *bytes.Buffer) error {
	if v.Value == nil {
		return fmt.Errorf("%w: response without inner value", ErrUnexpectedType)
	}

	buf.WriteByte(byte(v.Type()))

	return v.Value.encode(buf)
}

func (v OptionalValue) encode(buf *bytes.Buffer) error {
	buf.WriteByte(byte(v.Type()))
	if v.Value == nil {
		return nil
	}

	return v.Value.encode(buf)
}

func (v ListValue) encode(buf *bytes.Buffer) error {
	buf.WriteByte(byte(TypeList))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(v)))

	for _, item := range v {
		if err := item.encode(buf); err != nil {
			return err
		}
	}

	return nil
}

// encode writes tuple entries sorted by key, which is the canonical order the
// chain expects.
func (v TupleValue) encode(buf *bytes.Buffer) error {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte(byte(TypeTuple))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(keys)))

	for _, k := range keys {
		if err := validateName(k); err != nil {
			return err
		}

		buf.WriteByte(byte(len(k)))
		buf.WriteString(k)

		if err := v[k].encode(buf); err != nil {
			return err
		}
	}

	return nil
}

// Serialize returns the consensus serialization of a value.
func Serialize(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnexpectedType)
	}

	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// SerializeHex returns the 0x prefixed hex serialization used by the node
// read-only call API.
func SerializeHex(v Value) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(b), nil
}

// Deserialize decodes exactly one value from b.
func Deserialize(b []byte) (Value, error) {
	d := &decoder{buf: b}

	v, err := d.value(0)
	if err != nil {
		return nil, err
	}

	if d.pos != len(d.buf) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, len(d.buf)-d.pos)
	}

	return v, nil
}

// DeserializeHex decodes a value from its hex form, with or without a 0x
// prefix.
func DeserializeHex(s string) (Value, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode clarity hex: %w", err)
	}

	return Deserialize(b)
}

const maxDepth = 64

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncatedValue, n, d.pos)
	}

	out := d.buf[d.pos : d.pos+n]
	d.pos += n

	return out, nil
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (d *decoder) readUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) name() (string, error) {
	n, err := d.readByte()
	if err != nil {
		return "", err
	}

	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (d *decoder) principal() (StandardPrincipalValue, error) {
	var p StandardPrincipalValue

	version, err := d.readByte()
	if err != nil {
		return p, err
	}

	hash, err := d.take(20)
	if err != nil {
		return p, err
	}

	p.Version = version
	copy(p.Hash160[:], hash)

	return p, nil
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnexpectedType, maxDepth)
	}

	id, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch TypeID(id) {
	case TypeInt:
		b, err := d.take(16)
		if err != nil {
			return nil, err
		}

		n := new(big.Int).SetBytes(b)
		if b[0]&0x80 != 0 {
			n.Sub(n, twoPow128)
		}

		return IntValue{V: n}, nil
	case TypeUInt:
		b, err := d.take(16)
		if err != nil {
			return nil, err
		}

		return UIntValue{V: new(big.Int).SetBytes(b)}, nil
	case TypeBuffer, TypeStringASCII, TypeStringUTF8:
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}

		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}

		switch TypeID(id) {
		case TypeBuffer:
			return BufferValue(append([]byte(nil), b...)), nil
		case TypeStringASCII:
			return StringASCIIValue(b), nil
		default:
			return StringUTF8Value(b), nil
		}
	case TypeBoolTrue:
		return BoolValue(true), nil
	case TypeBoolFalse:
		return BoolValue(false), nil
	case TypeStandardPrincipal:
		return d.principal()
	case TypeContractPrincipal:
		p, err := d.principal()
		if err != nil {
			return nil, err
		}

		name, err := d.name()
		if err != nil {
			return nil, err
		}

		return ContractPrincipalValue{StandardPrincipalValue: p, Name: name}, nil
	case TypeResponseOk, TypeResponseErr:
		inner, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}

		return ResponseValue{Ok: TypeID(id) == TypeResponseOk, Value: inner}, nil
	case TypeOptionalNone:
		return OptionalValue{}, nil
	case TypeOptionalSome:
		inner, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}

		return OptionalValue{Value: inner}, nil
	case TypeList:
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}

		if n > defaultMaxListItems {
			return nil, fmt.Errorf("%w: list of %d items", ErrValueOutOfRange, n)
		}

		items := make(ListValue, 0, min(int(n), len(d.buf)-d.pos))
		for i := uint32(0); i < n; i++ {
			item, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}

			items = append(items, item)
		}

		return items, nil
	case TypeTuple:
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}

		tuple := make(TupleValue)
		for i := uint32(0); i < n; i++ {
			key, err := d.name()
			if err != nil {
				return nil, err
			}

			item, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}

			tuple[key] = item
		}

		return tuple, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTypeID, id)
	}
}
