package paillier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
)

// Ciphertext is a Paillier ciphertext, an integer in [0, n^2).
type Ciphertext struct {
	C *big.Int
}

// NewCiphertext wraps a copy of c.
func NewCiphertext(c *big.Int) *Ciphertext {
	return &Ciphertext{C: new(big.Int).Set(c)}
}

// Bytes returns the big-endian encoding of the ciphertext.
func (ct *Ciphertext) Bytes() []byte {
	if ct == nil || ct.C == nil {
		return nil
	}
	return ct.C.Bytes()
}

// SetBytes loads a big-endian encoded ciphertext.
func (ct *Ciphertext) SetBytes(b []byte) *Ciphertext {
	ct.C = new(big.Int).SetBytes(b)
	return ct
}

// Digest returns the Keccak-256 hash of the ciphertext bytes. It is used to
// bind partial decryptions and commitments to a specific ciphertext.
func (ct *Ciphertext) Digest() []byte {
	return ethcrypto.Keccak256(ct.Bytes())
}

// Clone returns a deep copy.
func (ct *Ciphertext) Clone() *Ciphertext {
	if ct == nil {
		return nil
	}
	return NewCiphertext(ct.C)
}

// Equal reports whether both ciphertexts hold the same value.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	if ct == nil || other == nil || ct.C == nil || other.C == nil {
		return ct == other
	}
	return ct.C.Cmp(other.C) == 0
}

// String returns the 0x-prefixed hex encoding.
func (ct *Ciphertext) String() string {
	return hexutil.Encode(ct.Bytes())
}

// MarshalText encodes the ciphertext as 0x-prefixed hex.
func (ct Ciphertext) MarshalText() ([]byte, error) {
	return []byte(ct.String()), nil
}

// UnmarshalText decodes 0x-prefixed hex.
func (ct *Ciphertext) UnmarshalText(data []byte) error {
	b, err := hexutil.Decode(string(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}
	ct.SetBytes(b)
	return nil
}

// MarshalCBOR encodes the ciphertext as a CBOR byte string.
func (ct Ciphertext) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(ct.Bytes())
}

// UnmarshalCBOR decodes a CBOR byte string.
func (ct *Ciphertext) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}
	ct.SetBytes(b)
	return nil
}
