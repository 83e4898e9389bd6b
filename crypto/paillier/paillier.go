// Package paillier implements the Paillier additively homomorphic
// cryptosystem with generator g = n+1.
//
// Plaintexts live in [0, n); negative values are represented as n - v.
// Ciphertexts live in [0, n^2) and carry no metadata: the public key needed
// to operate on them is always passed explicitly.
package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/vocdoni/paillier-tally/config"
	"github.com/vocdoni/paillier-tally/crypto/bigmath"
	"github.com/vocdoni/paillier-tally/log"
)

var (
	// ErrKeyGeneration is returned when no suitable key could be generated
	// with the requested parameters.
	ErrKeyGeneration = errors.New("paillier: key generation failed")
	// ErrInvalidPlaintext is returned for plaintexts outside [0, n).
	ErrInvalidPlaintext = errors.New("paillier: invalid plaintext")
	// ErrInvalidCiphertext is returned for ciphertexts outside [0, n^2) or
	// not invertible modulo n^2.
	ErrInvalidCiphertext = errors.New("paillier: invalid ciphertext")
	// ErrInvalidNonce is returned when an encryption randomizer is not a
	// unit modulo n.
	ErrInvalidNonce = errors.New("paillier: invalid nonce")
	// ErrInvalidPublicKey is returned for malformed moduli.
	ErrInvalidPublicKey = errors.New("paillier: invalid public key")
	// ErrDecryption is returned when decryption does not yield a valid
	// plaintext, which means the key does not match the ciphertext.
	ErrDecryption = errors.New("paillier: decryption failed")

	one = big.NewInt(1)
)

// maxPrimeRetries bounds how many times q is resampled when it collides
// with p or gcd(n, phi(n)) != 1.
const maxPrimeRetries = 16

// PublicKey is a Paillier public key. It must not be modified after
// creation.
type PublicKey struct {
	N *big.Int
	G *big.Int

	nSquared *big.Int
}

// NewPublicKey builds the public key for modulus n, with g = n+1.
func NewPublicKey(n *big.Int) (*PublicKey, error) {
	if n == nil || n.Cmp(big.NewInt(15)) < 0 || n.Bit(0) == 0 {
		return nil, ErrInvalidPublicKey
	}
	n = new(big.Int).Set(n)
	return &PublicKey{
		N:        n,
		G:        new(big.Int).Add(n, one),
		nSquared: new(big.Int).Mul(n, n),
	}, nil
}

// NSquared returns a copy of n^2.
func (pk *PublicKey) NSquared() *big.Int {
	return new(big.Int).Set(pk.n2())
}

func (pk *PublicKey) n2() *big.Int {
	if pk.nSquared != nil {
		return pk.nSquared
	}
	return new(big.Int).Mul(pk.N, pk.N)
}

// Equal reports whether both keys share the same modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	return pk.N.Cmp(other.N) == 0
}

// PrivateKey is a Paillier private key: lambda = lcm(p-1, q-1) and
// mu = lambda^-1 mod n. It is short lived: threshold deployments zeroize it
// as soon as it has been shared among the trustees.
type PrivateKey struct {
	Lambda *big.Int
	Mu     *big.Int
}

// Zeroize wipes lambda and mu in place. The key is unusable afterwards.
func (sk *PrivateKey) Zeroize() {
	if sk == nil {
		return
	}
	bigmath.Zeroize(sk.Lambda)
	bigmath.Zeroize(sk.Mu)
}

// KeyGenConfig holds the key generation parameters.
type KeyGenConfig struct {
	// Bits is the bit length of the modulus n. It must be even.
	Bits int
	// MinBits is the floor Bits is checked against.
	MinBits int
	// PrimalityRounds is the number of Miller-Rabin rounds per candidate.
	PrimalityRounds int
	// MaxPrimeAttempts bounds the candidates tried for each prime.
	MaxPrimeAttempts int
	// Rand is the randomness source, crypto/rand when nil.
	Rand io.Reader
}

// DefaultKeyGenConfig returns the configuration used by GenerateKey.
func DefaultKeyGenConfig(bits int) KeyGenConfig {
	return KeyGenConfig{
		Bits:             bits,
		MinBits:          config.MinKeyBits,
		PrimalityRounds:  config.PrimalityRounds,
		MaxPrimeAttempts: bits / 2 * config.PrimeAttemptsPerBit,
	}
}

// GenerateKey creates a key pair with a modulus of the given size, using
// the default floor and primality parameters.
func GenerateKey(bits int) (*PublicKey, *PrivateKey, error) {
	return GenerateKeyWithConfig(DefaultKeyGenConfig(bits))
}

// GenerateKeyWithConfig creates a key pair with two distinct primes of
// Bits/2 bits each. It fails with ErrKeyGeneration when Bits is odd, below
// the floor, or when no primes are found within the allowed attempts.
func GenerateKeyWithConfig(cfg KeyGenConfig) (*PublicKey, *PrivateKey, error) {
	if cfg.Bits%2 != 0 || cfg.Bits < cfg.MinBits {
		return nil, nil, fmt.Errorf("%w: modulus of %d bits (floor %d, must be even)",
			ErrKeyGeneration, cfg.Bits, cfg.MinBits)
	}
	r := cfg.Rand
	if r == nil {
		r = rand.Reader
	}
	primeBits := cfg.Bits / 2

	p, err := bigmath.RandomPrime(r, primeBits, cfg.PrimalityRounds, cfg.MaxPrimeAttempts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	defer bigmath.Zeroize(p)

	var q, n *big.Int
	pm1 := new(big.Int).Sub(p, one)
	defer bigmath.Zeroize(pm1)
	for retry := 0; ; retry++ {
		if retry == maxPrimeRetries {
			return nil, nil, fmt.Errorf("%w: no suitable q after %d retries", ErrKeyGeneration, retry)
		}
		if q, err = bigmath.RandomPrime(r, primeBits, cfg.PrimalityRounds, cfg.MaxPrimeAttempts); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
		}
		if p.Cmp(q) == 0 {
			continue
		}
		n = new(big.Int).Mul(p, q)
		phi := new(big.Int).Mul(pm1, new(big.Int).Sub(q, one))
		coprime := bigmath.GCD(n, phi).Cmp(one) == 0
		bigmath.Zeroize(phi)
		if coprime {
			break
		}
	}
	defer bigmath.Zeroize(q)

	qm1 := new(big.Int).Sub(q, one)
	lambda := bigmath.LCM(pm1, qm1)
	bigmath.Zeroize(qm1)
	mu, err := bigmath.ModInverse(lambda, n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lambda not invertible: %w", ErrKeyGeneration, err)
	}
	pk, err := NewPublicKey(n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	log.Debugw("paillier key generated", "bits", n.BitLen())
	return pk, &PrivateKey{Lambda: lambda, Mu: mu}, nil
}

// Encrypt encrypts m in [0, n) with a fresh random nonce.
func (pk *PublicKey) Encrypt(m *big.Int) (*Ciphertext, error) {
	r, err := bigmath.RandomUnit(rand.Reader, pk.N)
	if err != nil {
		return nil, fmt.Errorf("sample nonce: %w", err)
	}
	defer bigmath.Zeroize(r)
	return pk.EncryptWithNonce(m, r)
}

// EncryptWithNonce computes g^m * r^n mod n^2. Since g = n+1,
// g^m = 1 + m*n mod n^2. The nonce must be in [1, n) and coprime to n.
func (pk *PublicKey) EncryptWithNonce(m, r *big.Int) (*Ciphertext, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return nil, ErrInvalidPlaintext
	}
	if r == nil || r.Sign() <= 0 || r.Cmp(pk.N) >= 0 || bigmath.GCD(r, pk.N).Cmp(one) != 0 {
		return nil, ErrInvalidNonce
	}
	nsq := pk.n2()
	gm := new(big.Int).Mul(m, pk.N)
	gm.Add(gm, one)
	rn := new(big.Int).Exp(r, pk.N, nsq)
	c := gm.Mul(gm, rn)
	c.Mod(c, nsq)
	return &Ciphertext{C: c}, nil
}

// Decrypt returns the plaintext of c. It fails with ErrInvalidCiphertext
// when c is outside [0, n^2) and with ErrDecryption when the key does not
// belong to pk or c was not produced under pk.
func (sk *PrivateKey) Decrypt(pk *PublicKey, c *Ciphertext) (*big.Int, error) {
	if err := pk.checkRange(c); err != nil {
		return nil, err
	}
	if sk == nil || sk.Lambda == nil || sk.Mu == nil || sk.Lambda.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty private key", ErrDecryption)
	}
	check := new(big.Int).Mul(sk.Lambda, sk.Mu)
	if check.Mod(check, pk.N).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: private key does not match public key", ErrDecryption)
	}
	x := new(big.Int).Exp(c.C, sk.Lambda, pk.n2())
	l, err := L(x, pk.N)
	if err != nil {
		return nil, err
	}
	l.Mul(l, sk.Mu)
	return l.Mod(l, pk.N), nil
}

// L computes (x-1)/n and fails with ErrDecryption unless n divides x-1.
func L(x, n *big.Int) (*big.Int, error) {
	q, r := new(big.Int).QuoRem(new(big.Int).Sub(x, one), n, new(big.Int))
	if r.Sign() != 0 {
		return nil, fmt.Errorf("%w: L() division is not exact", ErrDecryption)
	}
	return q, nil
}
