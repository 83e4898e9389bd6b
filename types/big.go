package types

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a decimal string and
// CBOR to a bignum, so that large Paillier values survive any JSON decoder.
type BigInt big.Int

// NewBigInt wraps a copy of v.
func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(v))
}

// MarshalText returns the decimal string representation of the big number.
func (i BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(&i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	return (*big.Int)(i).UnmarshalText(data)
}

// MarshalJSON encodes the number as a quoted decimal string.
func (i BigInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.String())), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	if _, ok := (*big.Int)(i).SetString(s, 10); !ok {
		return fmt.Errorf("invalid BigInt %q", s)
	}
	return nil
}

// MarshalCBOR encodes the number as a CBOR bignum.
func (i BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(&i))
}

// UnmarshalCBOR decodes a CBOR bignum (or integer) into the number.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var v big.Int
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	(*big.Int)(i).Set(&v)
	return nil
}

// String returns the decimal representation.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// MathBigInt converts b to a math/big *Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value of x to the big number and returns it.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	return (*BigInt)((*big.Int)(i).SetUint64(x))
}

// Equal reports whether both numbers hold the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return (*big.Int)(i).Cmp((*big.Int)(j)) == 0
}
