package config

const (
	// DefaultKeyBits is the Paillier modulus size used for new elections.
	DefaultKeyBits = 2048
	// MinKeyBits is the smallest modulus accepted by key generation unless a
	// lower floor is configured explicitly. It implies 512-bit primes.
	MinKeyBits = 1024
	// PrimalityRounds is the number of Miller-Rabin rounds run on each prime
	// candidate. Each round has error at most 1/4, so 64 rounds bound the
	// error probability by 2^-128.
	PrimalityRounds = 64
	// PrimeAttemptsPerBit bounds the number of candidates tried when searching
	// for a prime of a given size (attempts = bits * PrimeAttemptsPerBit).
	PrimeAttemptsPerBit = 20
	// MinThreshold is the smallest number of trustees required to decrypt.
	MinThreshold = 2
	// MaxTrustees is the largest number of trustees a key can be split into.
	// Delta = MaxTrustees! must stay coprime with the modulus.
	MaxTrustees = 64
)
