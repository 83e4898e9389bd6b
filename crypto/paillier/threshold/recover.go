package threshold

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/vocdoni/paillier-tally/crypto/bigmath"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/crypto/shamir"
	"github.com/vocdoni/paillier-tally/log"
)

// RecoverPrivateKey rebuilds a standalone private key from at least
// Threshold trustee shares. It exists for recovery and testing: using it
// defeats the purpose of sharing the key.
//
// Interpolating the shares over the integers yields Delta*d + k*n*lambda
// for some k, a multiple of lambda, from which n is factored.
func RecoverPrivateKey(params *Params, shares []*TrusteeKeyShare) (*paillier.PrivateKey, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[int]struct{}, len(shares))
	valid := make([]*TrusteeKeyShare, 0, len(shares))
	for _, s := range shares {
		if s == nil || s.Share == nil {
			return nil, fmt.Errorf("%w: empty key share", ErrInvalidParameters)
		}
		if s.Index < 1 || s.Index > params.Trustees {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTrustee, s.Index)
		}
		if _, ok := seen[s.Index]; ok {
			return nil, fmt.Errorf("%w: trustee %d", ErrDuplicateShareIndex, s.Index)
		}
		seen[s.Index] = struct{}{}
		valid = append(valid, s)
	}
	if len(valid) < params.Threshold {
		return nil, fmt.Errorf("%w: got %d shares, need %d", ErrThresholdNotMet, len(valid), params.Threshold)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Index < valid[j].Index })
	valid = valid[:params.Threshold]

	indexes := make([]int, len(valid))
	for i, s := range valid {
		indexes[i] = s.Index
	}
	weights, err := shamir.IntegerLagrangeCoefficients(indexes, params.Delta())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}
	multiple := new(big.Int)
	for _, s := range valid {
		multiple.Add(multiple, new(big.Int).Mul(weights[s.Index], s.Share))
	}
	defer bigmath.Zeroize(multiple)
	multiple.Abs(multiple)
	if multiple.Sign() == 0 {
		return nil, fmt.Errorf("%w: shares interpolate to zero", ErrCombination)
	}

	n := params.PublicKey.N
	p, q, err := bigmath.FactorFromExponentMultiple(rand.Reader, n, multiple)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}
	defer bigmath.Zeroize(p)
	defer bigmath.Zeroize(q)
	lambda := bigmath.LCM(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
	mu, err := bigmath.ModInverse(lambda, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}
	log.Warnw("private key reconstructed from trustee shares", "shares", len(valid))
	return &paillier.PrivateKey{Lambda: lambda, Mu: mu}, nil
}
