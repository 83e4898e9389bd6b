package paillier

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/paillier-tally/types"
)

// publicKeyWire is the serialized form of a public key. G and n^2 are
// derived from N on decoding.
type publicKeyWire struct {
	N *types.BigInt `json:"n" cbor:"1,keyasint"`
}

func (pk *PublicKey) wire() publicKeyWire {
	return publicKeyWire{N: types.NewBigInt(pk.N)}
}

func (pk *PublicKey) fromWire(w publicKeyWire) error {
	if w.N == nil {
		return fmt.Errorf("%w: missing modulus", ErrInvalidPublicKey)
	}
	decoded, err := NewPublicKey(w.N.MathBigInt())
	if err != nil {
		return err
	}
	*pk = *decoded
	return nil
}

// MarshalJSON encodes the modulus as a decimal string.
func (pk *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.wire())
}

// UnmarshalJSON decodes and validates the modulus.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var w publicKeyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return pk.fromWire(w)
}

// MarshalCBOR encodes the modulus as a CBOR bignum.
func (pk *PublicKey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(pk.wire())
}

// UnmarshalCBOR decodes and validates the modulus.
func (pk *PublicKey) UnmarshalCBOR(data []byte) error {
	var w publicKeyWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	return pk.fromWire(w)
}
