// Package shamir implements Shamir secret sharing over a prime field, plus
// the polynomial and Lagrange primitives the threshold Paillier key
// manager reuses over other moduli.
package shamir

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/paillier-tally/config"
	"github.com/vocdoni/paillier-tally/crypto/bigmath"
)

var (
	// ErrInvalidParameters is returned for malformed split or share inputs.
	ErrInvalidParameters = errors.New("shamir: invalid parameters")
	// ErrInsufficientShares is returned when fewer shares than the
	// threshold are provided.
	ErrInsufficientShares = errors.New("shamir: insufficient shares")
	// ErrDuplicateShareIndex is returned when two shares have the same index.
	ErrDuplicateShareIndex = errors.New("shamir: duplicate share index")
	// ErrInconsistentShares is returned when shares come from different
	// fields or were split with different thresholds.
	ErrInconsistentShares = errors.New("shamir: inconsistent shares")
)

// Share is one point (Index, Value) of the sharing polynomial, together with
// the threshold and field it was produced with.
type Share struct {
	Index     int
	Value     *big.Int
	Threshold int
	Prime     *big.Int
}

// Split shares secret into n shares, any t of which reconstruct it. The
// prime must be larger than both n and the secret.
func Split(secret *big.Int, n, t int, prime *big.Int) ([]*Share, error) {
	if t < config.MinThreshold || t > n {
		return nil, fmt.Errorf("%w: threshold %d of %d", ErrInvalidParameters, t, n)
	}
	if prime == nil || !bigmath.IsProbablePrime(prime, config.PrimalityRounds) {
		return nil, fmt.Errorf("%w: field modulus is not prime", ErrInvalidParameters)
	}
	if prime.Cmp(big.NewInt(int64(n))) <= 0 {
		return nil, fmt.Errorf("%w: field too small for %d shares", ErrInvalidParameters, n)
	}
	if secret == nil || secret.Sign() < 0 || secret.Cmp(prime) >= 0 {
		return nil, fmt.Errorf("%w: secret outside the field", ErrInvalidParameters)
	}
	poly, err := NewPolynomial(rand.Reader, secret, t-1, prime)
	if err != nil {
		return nil, err
	}
	defer poly.Zeroize()

	shares := make([]*Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = &Share{
			Index:     i,
			Value:     poly.Eval(big.NewInt(int64(i))),
			Threshold: t,
			Prime:     new(big.Int).Set(prime),
		}
	}
	return shares, nil
}

// Reconstruct interpolates the shares at x = 0. All shares must carry the
// same prime and threshold, and at least threshold of them are required.
func Reconstruct(shares []*Share) (*big.Int, error) {
	if len(shares) == 0 {
		return nil, ErrInsufficientShares
	}
	first := shares[0]
	if first == nil || first.Prime == nil || first.Value == nil {
		return nil, fmt.Errorf("%w: empty share", ErrInvalidParameters)
	}
	prime, t := first.Prime, first.Threshold
	if t < config.MinThreshold {
		return nil, fmt.Errorf("%w: threshold %d", ErrInvalidParameters, t)
	}
	indexes := make([]int, len(shares))
	for i, s := range shares {
		if s == nil || s.Value == nil || s.Prime == nil {
			return nil, fmt.Errorf("%w: empty share", ErrInvalidParameters)
		}
		if s.Prime.Cmp(prime) != 0 || s.Threshold != t {
			return nil, ErrInconsistentShares
		}
		if s.Index < 1 || big.NewInt(int64(s.Index)).Cmp(prime) >= 0 {
			return nil, fmt.Errorf("%w: share index %d", ErrInvalidParameters, s.Index)
		}
		indexes[i] = s.Index
	}
	if len(shares) < t {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientShares, len(shares), t)
	}
	coeffs, err := LagrangeCoefficients(indexes, prime)
	if err != nil {
		return nil, err
	}
	secret := new(big.Int)
	term := new(big.Int)
	for _, s := range shares {
		term.Mul(s.Value, coeffs[s.Index])
		secret.Add(secret, term)
	}
	return secret.Mod(secret, prime), nil
}
