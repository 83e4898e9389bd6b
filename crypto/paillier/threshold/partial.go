package threshold

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	"github.com/vocdoni/paillier-tally/crypto/bigmath"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/crypto/shamir"
	"github.com/vocdoni/paillier-tally/log"
	"github.com/vocdoni/paillier-tally/types"
)

// PartialDecryption is one trustee's contribution to decrypting a
// ciphertext. Digest binds it to that ciphertext.
type PartialDecryption struct {
	TrusteeIndex int            `json:"trusteeIndex" cbor:"1,keyasint"`
	Value        *types.BigInt  `json:"value" cbor:"2,keyasint"`
	Digest       types.HexBytes `json:"digest" cbor:"3,keyasint"`
}

// PartialDecrypt computes c^(2*Delta*s_i) mod n^2 for this trustee.
func (s *TrusteeKeyShare) PartialDecrypt(params *Params, c *paillier.Ciphertext) (*PartialDecryption, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if s == nil || s.Share == nil {
		return nil, fmt.Errorf("%w: empty key share", ErrInvalidParameters)
	}
	if s.Index < 1 || s.Index > params.Trustees {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTrustee, s.Index)
	}
	if err := params.PublicKey.ValidateCiphertext(c); err != nil {
		return nil, err
	}
	exp := new(big.Int).Mul(params.Delta(), s.Share)
	exp.Lsh(exp, 1)
	value := new(big.Int).Exp(c.C, exp, params.PublicKey.NSquared())
	bigmath.Zeroize(exp)
	return &PartialDecryption{
		TrusteeIndex: s.Index,
		Value:        types.NewBigInt(value),
		Digest:       c.Digest(),
	}, nil
}

// selectPartials validates the partials against c and returns the first
// Threshold of them ordered by trustee index.
func (p *Params) selectPartials(digest []byte, partials []*PartialDecryption) ([]*PartialDecryption, error) {
	nsq := p.PublicKey.NSquared()
	seen := make(map[int]struct{}, len(partials))
	valid := make([]*PartialDecryption, 0, len(partials))
	for _, pd := range partials {
		if pd == nil || pd.Value == nil {
			return nil, fmt.Errorf("%w: empty partial decryption", ErrCombination)
		}
		if pd.TrusteeIndex < 1 || pd.TrusteeIndex > p.Trustees {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTrustee, pd.TrusteeIndex)
		}
		if !bytes.Equal(pd.Digest, digest) {
			return nil, fmt.Errorf("%w: trustee %d", ErrInconsistentCiphertext, pd.TrusteeIndex)
		}
		if _, ok := seen[pd.TrusteeIndex]; ok {
			return nil, fmt.Errorf("%w: trustee %d", ErrDuplicateShareIndex, pd.TrusteeIndex)
		}
		v := pd.Value.MathBigInt()
		if v.Sign() <= 0 || v.Cmp(nsq) >= 0 {
			return nil, fmt.Errorf("%w: trustee %d value out of range", ErrCombination, pd.TrusteeIndex)
		}
		seen[pd.TrusteeIndex] = struct{}{}
		valid = append(valid, pd)
	}
	if len(valid) < p.Threshold {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrThresholdNotMet, len(valid), p.Threshold)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].TrusteeIndex < valid[j].TrusteeIndex })
	return valid[:p.Threshold], nil
}

// Combine recovers the plaintext of c from at least Threshold partial
// decryptions of distinct trustees. Extra partials are ignored, the lowest
// trustee indexes are used.
func (p *Params) Combine(c *paillier.Ciphertext, partials []*PartialDecryption) (*big.Int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pk := p.PublicKey
	if err := pk.ValidateCiphertext(c); err != nil {
		return nil, err
	}
	digest := c.Digest()
	chosen, err := p.selectPartials(digest, partials)
	if err != nil {
		return nil, err
	}
	indexes := make([]int, len(chosen))
	for i, pd := range chosen {
		indexes[i] = pd.TrusteeIndex
	}
	delta := p.Delta()
	weights, err := shamir.IntegerLagrangeCoefficients(indexes, delta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}

	// c' = prod c_i^(2*mu_i) = c^(4*Delta^2*d) = 1 + 4*Delta^2*m*n
	nsq := pk.NSquared()
	combined := big.NewInt(1)
	for _, pd := range chosen {
		exp := new(big.Int).Lsh(weights[pd.TrusteeIndex], 1)
		term, err := bigmath.ModExp(pd.Value.MathBigInt(), exp, nsq)
		if err != nil {
			return nil, fmt.Errorf("%w: trustee %d: %w", ErrCombination, pd.TrusteeIndex, err)
		}
		combined.Mul(combined, term)
		combined.Mod(combined, nsq)
	}
	l, err := paillier.L(combined, pk.N)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}
	scale := new(big.Int).Mul(delta, delta)
	scale.Lsh(scale, 2)
	inv, err := bigmath.ModInverse(scale, pk.N)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCombination, err)
	}
	m := l.Mul(l, inv)
	m.Mod(m, pk.N)
	log.Debugw("partial decryptions combined",
		"ciphertext", hex.EncodeToString(digest[:8]),
		"trustees", fmt.Sprint(indexes))
	return m, nil
}
