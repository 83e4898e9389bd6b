// Package bigmath provides the modular arithmetic and prime helpers the
// Paillier and sharing packages are built on. All functions return fresh
// values and never modify their arguments.
package bigmath

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	// ErrNoInverse is returned when a value has no inverse for the modulus.
	ErrNoInverse = errors.New("no modular inverse")
	// ErrPrimeNotFound is returned when no prime was found within the
	// allowed number of candidates.
	ErrPrimeNotFound = errors.New("prime not found")
	// ErrFactorNotFound is returned when the modulus could not be factored
	// from the exponent multiple provided.
	ErrFactorNotFound = errors.New("factor not found")
	// ErrInvalidArgument is returned on malformed inputs (nil, non-positive
	// modulus, too few bits).
	ErrInvalidArgument = errors.New("invalid argument")

	one = big.NewInt(1)
	two = big.NewInt(2)
)

// smallPrimes are used to discard prime candidates before running the
// expensive probabilistic test.
var smallPrimes = []uint8{3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53}

// smallPrimesProduct is the product of smallPrimes.
var smallPrimesProduct = new(big.Int).SetUint64(16294579238595022365)

// maxFactorAttempts bounds the random bases tried by
// FactorFromExponentMultiple. Each base succeeds with probability >= 1/2.
const maxFactorAttempts = 128

// ModExp returns base^exp mod m. Negative exponents are supported by
// inverting the base first, which fails with ErrNoInverse when the base is
// not a unit modulo m.
func ModExp(base, exp, m *big.Int) (*big.Int, error) {
	if base == nil || exp == nil || m == nil || m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modexp operands", ErrInvalidArgument)
	}
	if exp.Sign() >= 0 {
		return new(big.Int).Exp(base, exp, m), nil
	}
	inv, err := ModInverse(base, m)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Exp(inv, new(big.Int).Neg(exp), m), nil
}

// ModInverse returns a^-1 mod m, or ErrNoInverse if gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if a == nil || m == nil || m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modinverse operands", ErrInvalidArgument)
	}
	r := new(big.Int).Mod(a, m)
	if r.ModInverse(r, m) == nil {
		return nil, ErrNoInverse
	}
	return r, nil
}

// GCD returns the greatest common divisor of a and b (both non-negative).
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// LCM returns the least common multiple of two positive integers.
func LCM(a, b *big.Int) *big.Int {
	g := GCD(a, b)
	if g.Sign() == 0 {
		return new(big.Int)
	}
	l := new(big.Int).Div(a, g)
	return l.Mul(l, b)
}

// Factorial returns n!. Factorial(0) is 1.
func Factorial(n int) *big.Int {
	if n < 2 {
		return big.NewInt(1)
	}
	return new(big.Int).MulRange(1, int64(n))
}

// IsProbablePrime runs the given number of Miller-Rabin rounds (plus the
// Baillie-PSW test math/big always applies). The probability of a composite
// passing is at most 4^-rounds.
func IsProbablePrime(n *big.Int, rounds int) bool {
	if n == nil || n.Sign() <= 0 {
		return false
	}
	return n.ProbablyPrime(rounds)
}

// RandomInt returns a uniform integer in [0, max).
func RandomInt(r io.Reader, max *big.Int) (*big.Int, error) {
	if max == nil || max.Sign() <= 0 {
		return nil, fmt.Errorf("%w: random upper bound", ErrInvalidArgument)
	}
	return rand.Int(r, max)
}

// RandomUnit returns a uniform integer in [1, n) coprime to n.
func RandomUnit(r io.Reader, n *big.Int) (*big.Int, error) {
	if n == nil || n.Cmp(two) < 0 {
		return nil, fmt.Errorf("%w: unit modulus", ErrInvalidArgument)
	}
	for {
		v, err := rand.Int(r, n)
		if err != nil {
			return nil, err
		}
		if v.Sign() == 0 {
			continue
		}
		if GCD(v, n).Cmp(one) == 0 {
			return v, nil
		}
	}
}

// RandomPrime returns a prime of exactly the given bit length. The two most
// significant bits are set so the product of two such primes has exactly
// 2*bits bits. At most maxAttempts candidates are tested before giving up
// with ErrPrimeNotFound.
func RandomPrime(r io.Reader, bits, rounds, maxAttempts int) (*big.Int, error) {
	if bits < 16 {
		return nil, fmt.Errorf("%w: prime size %d bits", ErrInvalidArgument, bits)
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("%w: %d attempts", ErrInvalidArgument, maxAttempts)
	}
	nbytes := (bits + 7) / 8
	buf := make([]byte, nbytes)
	// bits to clear in the first byte
	excess := uint(nbytes*8 - bits)
	p := new(big.Int)
	rem := new(big.Int)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read randomness: %w", err)
		}
		buf[0] &= byte(0xff >> excess)
		p.SetBytes(buf)
		p.SetBit(p, bits-1, 1)
		p.SetBit(p, bits-2, 1)
		p.SetBit(p, 0, 1)

		if !passesSieve(rem.Mod(p, smallPrimesProduct).Uint64()) {
			continue
		}
		if IsProbablePrime(p, rounds) {
			return new(big.Int).Set(p), nil
		}
	}
	return nil, fmt.Errorf("%w: %d candidates of %d bits", ErrPrimeNotFound, maxAttempts, bits)
}

func passesSieve(mod uint64) bool {
	for _, sp := range smallPrimes {
		if mod%uint64(sp) == 0 {
			return false
		}
	}
	return true
}

// FactorFromExponentMultiple factors n = p*q (distinct odd primes) given
// any positive multiple m of the Carmichael function lambda(n). It returns
// the factors with p < q.
func FactorFromExponentMultiple(r io.Reader, n, m *big.Int) (*big.Int, *big.Int, error) {
	if n == nil || m == nil || n.Cmp(big.NewInt(15)) < 0 || m.Sign() <= 0 || m.Bit(0) != 0 {
		return nil, nil, fmt.Errorf("%w: factoring inputs", ErrInvalidArgument)
	}
	// m = 2^s * t with t odd
	s := int(m.TrailingZeroBits())
	t := new(big.Int).Rsh(m, uint(s))
	nMinusOne := new(big.Int).Sub(n, one)
	bound := new(big.Int).Sub(n, big.NewInt(3))

	for attempt := 0; attempt < maxFactorAttempts; attempt++ {
		a, err := rand.Int(r, bound)
		if err != nil {
			return nil, nil, err
		}
		a.Add(a, two)
		if g := GCD(a, n); g.Cmp(one) != 0 {
			return orderFactors(g, new(big.Int).Div(n, g))
		}
		x := new(big.Int).Exp(a, t, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}
		for i := 0; i < s; i++ {
			y := new(big.Int).Exp(x, two, n)
			if y.Cmp(one) == 0 {
				// x is a non-trivial square root of one
				g := GCD(new(big.Int).Sub(x, one), n)
				return orderFactors(g, new(big.Int).Div(n, g))
			}
			if y.Cmp(nMinusOne) == 0 {
				break
			}
			x = y
		}
	}
	return nil, nil, ErrFactorNotFound
}

func orderFactors(p, q *big.Int) (*big.Int, *big.Int, error) {
	if p.Cmp(one) == 0 || q.Cmp(one) == 0 {
		return nil, nil, ErrFactorNotFound
	}
	if p.Cmp(q) > 0 {
		p, q = q, p
	}
	return p, q, nil
}
