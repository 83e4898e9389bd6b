package shamir

import (
	"fmt"
	"io"
	"math/big"

	"github.com/vocdoni/paillier-tally/crypto/bigmath"
)

// Polynomial is a random polynomial over Z_mod with a fixed constant term.
type Polynomial struct {
	coeffs []*big.Int
	mod    *big.Int
}

// NewPolynomial returns a polynomial of the given degree whose constant
// term is secret and whose other coefficients are uniform in [0, mod).
func NewPolynomial(r io.Reader, secret *big.Int, degree int, mod *big.Int) (*Polynomial, error) {
	if degree < 0 || mod == nil || mod.Sign() <= 0 || secret == nil {
		return nil, fmt.Errorf("%w: polynomial parameters", ErrInvalidParameters)
	}
	coeffs := make([]*big.Int, degree+1)
	coeffs[0] = new(big.Int).Mod(secret, mod)
	for i := 1; i <= degree; i++ {
		a, err := bigmath.RandomInt(r, mod)
		if err != nil {
			return nil, fmt.Errorf("sample coefficient: %w", err)
		}
		coeffs[i] = a
	}
	return &Polynomial{coeffs: coeffs, mod: new(big.Int).Set(mod)}, nil
}

// Degree returns the degree of the polynomial.
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Eval evaluates the polynomial at x using Horner's rule.
func (p *Polynomial) Eval(x *big.Int) *big.Int {
	y := new(big.Int)
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		y.Mul(y, x)
		y.Add(y, p.coeffs[i])
		y.Mod(y, p.mod)
	}
	return y
}

// Zeroize wipes all coefficients, including the secret.
func (p *Polynomial) Zeroize() {
	for _, c := range p.coeffs {
		bigmath.Zeroize(c)
	}
}

// LagrangeCoefficients returns l_i(0) mod m for every index i, where l_i is
// the Lagrange basis polynomial over the given indexes.
func LagrangeCoefficients(indexes []int, m *big.Int) (map[int]*big.Int, error) {
	if err := checkIndexes(indexes); err != nil {
		return nil, err
	}
	coeffs := make(map[int]*big.Int, len(indexes))
	for _, i := range indexes {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		for _, j := range indexes {
			if i == j {
				continue
			}
			// numerator *= -j, denominator *= i - j
			numerator.Mul(numerator, big.NewInt(int64(-j)))
			numerator.Mod(numerator, m)
			denominator.Mul(denominator, big.NewInt(int64(i-j)))
			denominator.Mod(denominator, m)
		}
		inv, err := bigmath.ModInverse(denominator, m)
		if err != nil {
			return nil, fmt.Errorf("%w: lagrange denominator for index %d: %w", ErrInvalidParameters, i, err)
		}
		coeff := numerator.Mul(numerator, inv)
		coeffs[i] = coeff.Mod(coeff, m)
	}
	return coeffs, nil
}

// IntegerLagrangeCoefficients returns delta * l_i(0) as exact integers.
// With delta = N! and indexes in [1, N] every coefficient is an integer, so
// interpolation works in groups of unknown order. Coefficients may be
// negative.
func IntegerLagrangeCoefficients(indexes []int, delta *big.Int) (map[int]*big.Int, error) {
	if err := checkIndexes(indexes); err != nil {
		return nil, err
	}
	coeffs := make(map[int]*big.Int, len(indexes))
	for _, i := range indexes {
		numerator := new(big.Int).Set(delta)
		denominator := big.NewInt(1)
		for _, j := range indexes {
			if i == j {
				continue
			}
			numerator.Mul(numerator, big.NewInt(int64(-j)))
			denominator.Mul(denominator, big.NewInt(int64(i-j)))
		}
		q, r := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
		if r.Sign() != 0 {
			return nil, fmt.Errorf("%w: delta does not clear the denominator of index %d", ErrInvalidParameters, i)
		}
		coeffs[i] = q
	}
	return coeffs, nil
}

func checkIndexes(indexes []int) error {
	if len(indexes) == 0 {
		return ErrInsufficientShares
	}
	seen := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		if i < 1 {
			return fmt.Errorf("%w: share index %d", ErrInvalidParameters, i)
		}
		if _, ok := seen[i]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateShareIndex, i)
		}
		seen[i] = struct{}{}
	}
	return nil
}
