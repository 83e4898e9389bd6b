package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomInt returns a uniform integer in [min, max).
func RandomInt(min, max int) int {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return int(num.Int64()) + min
}

// RandomSubset returns k distinct values picked uniformly from 1..n, in
// random order. It is used to choose which trustees take part in a
// decryption. Panics if k is out of [0, n].
func RandomSubset(n, k int) []int {
	if k < 0 || k > n {
		panic(fmt.Sprintf("invalid subset size %d of %d", k, n))
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i + 1
	}
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := RandomInt(i, n)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
