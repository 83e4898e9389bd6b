package bigmath

import (
	"math/big"
	"runtime"
)

// Zeroize overwrites the words backing x and sets it to zero. Copies made
// earlier by math/big cannot be reached and are left to the collector.
func Zeroize(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	runtime.KeepAlive(words)
	x.SetInt64(0)
}
