package paillier

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vocdoni/paillier-tally/crypto/bigmath"
)

func (pk *PublicKey) checkRange(c *Ciphertext) error {
	if c == nil || c.C == nil || c.C.Sign() < 0 || c.C.Cmp(pk.n2()) >= 0 {
		return ErrInvalidCiphertext
	}
	return nil
}

// ValidateCiphertext checks that c is in [1, n^2) and coprime to n, which
// every honestly produced ciphertext is.
func (pk *PublicKey) ValidateCiphertext(c *Ciphertext) error {
	if err := pk.checkRange(c); err != nil {
		return err
	}
	if c.C.Sign() == 0 || bigmath.GCD(c.C, pk.N).Cmp(one) != 0 {
		return fmt.Errorf("%w: not a unit modulo n", ErrInvalidCiphertext)
	}
	return nil
}

// Add returns a ciphertext of m1 + m2 mod n.
func (pk *PublicKey) Add(x, y *Ciphertext) (*Ciphertext, error) {
	if err := pk.checkRange(x); err != nil {
		return nil, err
	}
	if err := pk.checkRange(y); err != nil {
		return nil, err
	}
	c := new(big.Int).Mul(x.C, y.C)
	return &Ciphertext{C: c.Mod(c, pk.n2())}, nil
}

// AddPlain returns a ciphertext of m + k mod n. Negative k subtracts.
func (pk *PublicKey) AddPlain(c *Ciphertext, k *big.Int) (*Ciphertext, error) {
	if err := pk.checkRange(c); err != nil {
		return nil, err
	}
	if k == nil {
		return nil, ErrInvalidPlaintext
	}
	nsq := pk.n2()
	// g^k = 1 + k*n mod n^2
	gk := new(big.Int).Mod(k, pk.N)
	gk.Mul(gk, pk.N)
	gk.Add(gk, one)
	gk.Mul(gk, c.C)
	return &Ciphertext{C: gk.Mod(gk, nsq)}, nil
}

// ScalarMul returns a ciphertext of k*m mod n. Negative k is reduced mod n.
func (pk *PublicKey) ScalarMul(c *Ciphertext, k *big.Int) (*Ciphertext, error) {
	if err := pk.checkRange(c); err != nil {
		return nil, err
	}
	if k == nil {
		return nil, ErrInvalidPlaintext
	}
	e := new(big.Int).Mod(k, pk.N)
	return &Ciphertext{C: new(big.Int).Exp(c.C, e, pk.n2())}, nil
}

// Neg returns a ciphertext of n - m, i.e. -m.
func (pk *PublicKey) Neg(c *Ciphertext) (*Ciphertext, error) {
	if err := pk.checkRange(c); err != nil {
		return nil, err
	}
	inv, err := bigmath.ModInverse(c.C, pk.n2())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}
	return &Ciphertext{C: inv}, nil
}

// Sub returns a ciphertext of m1 - m2 mod n.
func (pk *PublicKey) Sub(x, y *Ciphertext) (*Ciphertext, error) {
	neg, err := pk.Neg(y)
	if err != nil {
		return nil, err
	}
	return pk.Add(x, neg)
}

// Sum folds Add over cs. At least one ciphertext is required.
func (pk *PublicKey) Sum(cs ...*Ciphertext) (*Ciphertext, error) {
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: empty sum", ErrInvalidCiphertext)
	}
	if err := pk.checkRange(cs[0]); err != nil {
		return nil, err
	}
	acc := cs[0].Clone()
	for _, c := range cs[1:] {
		next, err := pk.Add(acc, c)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Rerandomize returns a fresh ciphertext of the same plaintext.
func (pk *PublicKey) Rerandomize(c *Ciphertext) (*Ciphertext, error) {
	if err := pk.checkRange(c); err != nil {
		return nil, err
	}
	r, err := bigmath.RandomUnit(rand.Reader, pk.N)
	if err != nil {
		return nil, fmt.Errorf("sample nonce: %w", err)
	}
	nsq := pk.n2()
	rn := new(big.Int).Exp(r, pk.N, nsq)
	bigmath.Zeroize(r)
	rn.Mul(rn, c.C)
	return &Ciphertext{C: rn.Mod(rn, nsq)}, nil
}
