// Package threshold splits a Paillier private key among N trustees so that
// any T of them can jointly decrypt, while fewer learn nothing useful.
//
// The shared secret is the decryption exponent d = lambda*mu, which
// satisfies d = 0 mod lambda and d = 1 mod n. It is shared with a random
// polynomial of degree T-1 over Z_M, M = n*lambda, the exponent of the group
// Z*_{n^2}. Trustee i publishes c^(2*Delta*s_i) with Delta = N!, and the
// partials are combined in the exponent with Delta-scaled integer Lagrange
// weights, so no trustee ever needs to know M.
package threshold

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/paillier-tally/config"
	"github.com/vocdoni/paillier-tally/crypto/bigmath"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/crypto/shamir"
	"github.com/vocdoni/paillier-tally/log"
)

var (
	// ErrInvalidParameters is returned for malformed threshold parameters.
	ErrInvalidParameters = errors.New("threshold: invalid parameters")
	// ErrThresholdNotMet is returned when fewer than T distinct trustees
	// contributed.
	ErrThresholdNotMet = errors.New("threshold: not enough partial decryptions")
	// ErrInconsistentCiphertext is returned when a partial decryption was
	// computed for a different ciphertext.
	ErrInconsistentCiphertext = errors.New("threshold: partial decryption for another ciphertext")
	// ErrUnknownTrustee is returned for trustee indexes outside [1, N].
	ErrUnknownTrustee = errors.New("threshold: unknown trustee")
	// ErrCombination is returned when the partials do not combine into a
	// valid plaintext, which means at least one of them is corrupted.
	ErrCombination = errors.New("threshold: combination failed")
	// ErrDuplicateShareIndex is returned when a trustee index appears twice.
	ErrDuplicateShareIndex = shamir.ErrDuplicateShareIndex

	one = big.NewInt(1)
)

// Params are the public parameters of a threshold key.
type Params struct {
	PublicKey *paillier.PublicKey `json:"publicKey" cbor:"1,keyasint"`
	Trustees  int                 `json:"trustees" cbor:"2,keyasint"`
	Threshold int                 `json:"threshold" cbor:"3,keyasint"`
}

// Delta returns Trustees!.
func (p *Params) Delta() *big.Int {
	return bigmath.Factorial(p.Trustees)
}

// Validate checks 2 <= Threshold <= Trustees <= config.MaxTrustees and that
// a public key is present.
func (p *Params) Validate() error {
	if p == nil || p.PublicKey == nil || p.PublicKey.N == nil {
		return fmt.Errorf("%w: missing public key", ErrInvalidParameters)
	}
	if p.Threshold < config.MinThreshold || p.Threshold > p.Trustees || p.Trustees > config.MaxTrustees {
		return fmt.Errorf("%w: threshold %d of %d trustees (max %d)",
			ErrInvalidParameters, p.Threshold, p.Trustees, config.MaxTrustees)
	}
	return nil
}

// TrusteeKeyShare is the secret share held by one trustee. It must never
// be persisted or logged by this module.
type TrusteeKeyShare struct {
	Index int
	Share *big.Int
}

// Zeroize wipes the share value.
func (s *TrusteeKeyShare) Zeroize() {
	if s != nil {
		bigmath.Zeroize(s.Share)
	}
}

// DistributePrivateKey splits sk into one share per trustee, any threshold
// of which can decrypt. Either all shares are returned or none. On success
// sk is zeroized: only the shares remain.
func DistributePrivateKey(pk *paillier.PublicKey, sk *paillier.PrivateKey, trustees, threshold int,
) (*Params, []*TrusteeKeyShare, error) {
	params := &Params{PublicKey: pk, Trustees: trustees, Threshold: threshold}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if sk == nil || sk.Lambda == nil || sk.Mu == nil || sk.Lambda.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: empty private key", ErrInvalidParameters)
	}
	d := new(big.Int).Mul(sk.Lambda, sk.Mu)
	defer bigmath.Zeroize(d)
	if new(big.Int).Mod(d, pk.N).Cmp(one) != 0 {
		return nil, nil, fmt.Errorf("%w: private key does not match public key", ErrInvalidParameters)
	}
	delta := params.Delta()
	if bigmath.GCD(delta, pk.N).Cmp(one) != 0 {
		return nil, nil, fmt.Errorf("%w: %d! shares a factor with n", ErrInvalidParameters, trustees)
	}

	m := new(big.Int).Mul(pk.N, sk.Lambda)
	defer bigmath.Zeroize(m)
	poly, err := shamir.NewPolynomial(rand.Reader, d, threshold-1, m)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	defer poly.Zeroize()

	shares := make([]*TrusteeKeyShare, trustees)
	for i := 1; i <= trustees; i++ {
		shares[i-1] = &TrusteeKeyShare{
			Index: i,
			Share: poly.Eval(big.NewInt(int64(i))),
		}
	}
	sk.Zeroize()
	log.Infow("private key distributed",
		"trustees", trustees,
		"threshold", threshold,
		"modulusBits", pk.N.BitLen())
	return params, shares, nil
}
