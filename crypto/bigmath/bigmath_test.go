package bigmath

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestModExpNegativeExponent(t *testing.T) {
	c := qt.New(t)
	m := big.NewInt(97)
	base := big.NewInt(5)

	pos, err := ModExp(base, big.NewInt(3), m)
	c.Assert(err, qt.IsNil)
	c.Assert(pos.Int64(), qt.Equals, int64(125%97))

	neg, err := ModExp(base, big.NewInt(-3), m)
	c.Assert(err, qt.IsNil)
	prod := new(big.Int).Mul(pos, neg)
	c.Assert(prod.Mod(prod, m).Int64(), qt.Equals, int64(1))

	_, err = ModExp(big.NewInt(6), big.NewInt(-1), big.NewInt(9))
	c.Assert(err, qt.ErrorIs, ErrNoInverse)
	_, err = ModExp(base, big.NewInt(1), big.NewInt(0))
	c.Assert(err, qt.ErrorIs, ErrInvalidArgument)
}

func TestModInverse(t *testing.T) {
	c := qt.New(t)
	inv, err := ModInverse(big.NewInt(-3), big.NewInt(11))
	c.Assert(err, qt.IsNil)
	// -3 * 7 = -21 = 1 mod 11
	c.Assert(inv.Int64(), qt.Equals, int64(7))

	_, err = ModInverse(big.NewInt(4), big.NewInt(8))
	c.Assert(err, qt.ErrorIs, ErrNoInverse)
}

func TestLCMFactorial(t *testing.T) {
	c := qt.New(t)
	c.Assert(LCM(big.NewInt(4), big.NewInt(6)).Int64(), qt.Equals, int64(12))
	c.Assert(LCM(big.NewInt(7), big.NewInt(13)).Int64(), qt.Equals, int64(91))
	c.Assert(Factorial(0).Int64(), qt.Equals, int64(1))
	c.Assert(Factorial(1).Int64(), qt.Equals, int64(1))
	c.Assert(Factorial(5).Int64(), qt.Equals, int64(120))
}

func TestSmallPrimesProduct(t *testing.T) {
	c := qt.New(t)
	prod := big.NewInt(1)
	for _, p := range smallPrimes {
		prod.Mul(prod, big.NewInt(int64(p)))
	}
	c.Assert(prod.Cmp(smallPrimesProduct), qt.Equals, 0)
}

func TestRandomPrime(t *testing.T) {
	c := qt.New(t)
	for _, bits := range []int{64, 256, 257} {
		p, err := RandomPrime(rand.Reader, bits, 20, bits*20)
		c.Assert(err, qt.IsNil)
		c.Assert(p.BitLen(), qt.Equals, bits)
		c.Assert(p.Bit(bits-2), qt.Equals, uint(1))
		c.Assert(IsProbablePrime(p, 20), qt.IsTrue)
	}

	// an all-zero source only yields 2^15+2^14+1 = 13*3781 for 16 bits
	zeros := bytes.NewReader(make([]byte, 2*4))
	_, err := RandomPrime(zeros, 16, 20, 4)
	c.Assert(err, qt.ErrorIs, ErrPrimeNotFound)

	_, err = RandomPrime(rand.Reader, 8, 20, 10)
	c.Assert(err, qt.ErrorIs, ErrInvalidArgument)
}

func TestIsProbablePrime(t *testing.T) {
	c := qt.New(t)
	c.Assert(IsProbablePrime(big.NewInt(2), 10), qt.IsTrue)
	c.Assert(IsProbablePrime(big.NewInt(97), 10), qt.IsTrue)
	// Carmichael number
	c.Assert(IsProbablePrime(big.NewInt(561), 10), qt.IsFalse)
	c.Assert(IsProbablePrime(big.NewInt(0), 10), qt.IsFalse)
	c.Assert(IsProbablePrime(big.NewInt(-7), 10), qt.IsFalse)
}

func TestRandomUnit(t *testing.T) {
	c := qt.New(t)
	n := big.NewInt(2 * 3 * 5 * 7)
	for i := 0; i < 100; i++ {
		u, err := RandomUnit(rand.Reader, n)
		c.Assert(err, qt.IsNil)
		c.Assert(u.Sign() > 0 && u.Cmp(n) < 0, qt.IsTrue)
		c.Assert(GCD(u, n).Int64(), qt.Equals, int64(1))
	}
	_, err := RandomUnit(rand.Reader, big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrInvalidArgument)
}

func TestFactorFromExponentMultiple(t *testing.T) {
	c := qt.New(t)
	p, err := RandomPrime(rand.Reader, 128, 20, 128*20)
	c.Assert(err, qt.IsNil)
	q, err := RandomPrime(rand.Reader, 128, 20, 128*20)
	c.Assert(err, qt.IsNil)
	n := new(big.Int).Mul(p, q)
	lambda := LCM(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))

	// any multiple of lambda works
	m := new(big.Int).Mul(lambda, big.NewInt(720))
	fp, fq, err := FactorFromExponentMultiple(rand.Reader, n, m)
	c.Assert(err, qt.IsNil)
	c.Assert(new(big.Int).Mul(fp, fq).Cmp(n), qt.Equals, 0)
	c.Assert(fp.Cmp(fq) < 0, qt.IsTrue)
	c.Assert(fp.Cmp(p) == 0 || fp.Cmp(q) == 0, qt.IsTrue)

	_, _, err = FactorFromExponentMultiple(rand.Reader, n, big.NewInt(3))
	c.Assert(err, qt.ErrorIs, ErrInvalidArgument)
}

func TestZeroize(t *testing.T) {
	c := qt.New(t)
	x := new(big.Int).Lsh(big.NewInt(12345), 300)
	words := x.Bits()
	Zeroize(x)
	c.Assert(x.Sign(), qt.Equals, 0)
	for _, w := range words {
		c.Assert(w, qt.Equals, big.Word(0))
	}
	Zeroize(nil)
}
