package stacks

import (
	"fmt"
)

// Unwrap strips any (ok ...) and (some ...) wrappers around v. A 'none'
// anywhere along the chain reports present=false. An (err ...) response is
// returned as ErrResponseErr.
func Unwrap(v Value) (inner Value, present bool, err error) {
	for {
		switch t := v.(type) {
		case ResponseValue:
			if !t.Ok {
				return nil, false, fmt.Errorf("%w: %s", ErrResponseErr, Describe(t.Value))
			}

			v = t.Value
		case OptionalValue:
			if t.Value == nil {
				return nil, false, nil
			}

			v = t.Value
		case nil:
			return nil, false, fmt.Errorf("%w: nil value", ErrUnexpectedType)
		default:
			return v, true, nil
		}
	}
}

// AsUint64 unwraps v and converts a Clarity uint into a uint64.
func AsUint64(v Value) (uint64, error) {
	inner, present, err := Unwrap(v)
	if err != nil {
		return 0, err
	}

	if !present {
		return 0, fmt.Errorf("%w: expected uint, got none", ErrUnexpectedType)
	}

	u, ok := inner.(UIntValue)
	if !ok {
		return 0, fmt.Errorf("%w: expected uint, got %T", ErrUnexpectedType, inner)
	}

	if u.V == nil || !u.V.IsUint64() {
		return 0, fmt.Errorf("%w: %v does not fit in uint64", ErrValueOutOfRange, u.V)
	}

	return u.V.Uint64(), nil
}

// AsBool unwraps v and returns the boolean it holds.
func AsBool(v Value) (bool, error) {
	inner, present, err := Unwrap(v)
	if err != nil {
		return false, err
	}

	if !present {
		return false, fmt.Errorf("%w: expected bool, got none", ErrUnexpectedType)
	}

	b, ok := inner.(BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: expected bool, got %T", ErrUnexpectedType, inner)
	}

	return bool(b), nil
}

// AsPrincipal unwraps v and returns the principal in its string form.
func AsPrincipal(v Value) (string, error) {
	inner, present, err := Unwrap(v)
	if err != nil {
		return "", err
	}

	if !present {
		return "", fmt.Errorf("%w: expected principal, got none", ErrUnexpectedType)
	}

	switch p := inner.(type) {
	case StandardPrincipalValue:
		return p.String(), nil
	case ContractPrincipalValue:
		return p.String(), nil
	default:
		return "", fmt.Errorf("%w: expected principal, got %T", ErrUnexpectedType, inner)
	}
}

// AsList unwraps v and returns its items.
func AsList(v Value) (ListValue, error) {
	inner, present, err := Unwrap(v)
	if err != nil {
		return nil, err
	}

	if !present {
		return nil, nil
	}

	l, ok := inner.(ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: expected list, got %T", ErrUnexpectedType, inner)
	}

	return l, nil
}

// Field returns a named entry of a tuple.
func Field(v Value, name string) (Value, error) {
	t, ok := v.(TupleValue)
	if !ok {
		return nil, fmt.Errorf("%w: expected tuple, got %T", ErrUnexpectedType, v)
	}

	f, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTupleKey, name)
	}

	return f, nil
}

// Describe renders a value in a compact Clarity-like notation for logs.
func Describe(v Value) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case IntValue:
		return t.V.String()
	case UIntValue:
		return "u" + t.V.String()
	case BoolValue:
		if t {
			return "true"
		}
		return "false"
	case BufferValue:
		return fmt.Sprintf("0x%x", []byte(t))
	case StringASCIIValue:
		return fmt.Sprintf("%q", string(t))
	case StringUTF8Value:
		return fmt.Sprintf("u%q", string(t))
	case StandardPrincipalValue:
		return "'" + t.String()
	case ContractPrincipalValue:
		return "'" + t.String()
	case ResponseValue:
		if t.Ok {
			return "(ok " + Describe(t.Value) + ")"
		}
		return "(err " + Describe(t.Value) + ")"
	case OptionalValue:
		if t.Value == nil {
			return "none"
		}
		return "(some " + Describe(t.Value) + ")"
	case ListValue:
		s := "(list"
		for _, item := range t {
			s += " " + Describe(item)
		}
		return s + ")"
	case TupleValue:
		return fmt.Sprintf("(tuple %d fields)", len(t))
	default:
		return fmt.Sprintf("%T", v)
	}
}
