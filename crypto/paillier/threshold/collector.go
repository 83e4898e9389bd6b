package threshold

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/log"
)

// Collector gathers partial decryptions of a single ciphertext as trustees
// respond, and combines them once the threshold is reached. It is safe for
// concurrent use.
type Collector struct {
	params     *Params
	ciphertext *paillier.Ciphertext
	digest     []byte

	mu       sync.Mutex
	partials map[int]*PartialDecryption
	ready    chan struct{}
}

// NewCollector returns a collector for ciphertext c.
func NewCollector(params *Params, c *paillier.Ciphertext) (*Collector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := params.PublicKey.ValidateCiphertext(c); err != nil {
		return nil, err
	}
	return &Collector{
		params:     params,
		ciphertext: c.Clone(),
		digest:     c.Digest(),
		partials:   make(map[int]*PartialDecryption),
		ready:      make(chan struct{}),
	}, nil
}

// Add records a partial decryption. A resend of an identical partial is
// ignored; a different value from the same trustee is rejected with
// ErrDuplicateShareIndex.
func (c *Collector) Add(pd *PartialDecryption) error {
	if pd == nil || pd.Value == nil {
		return fmt.Errorf("%w: empty partial decryption", ErrCombination)
	}
	if pd.TrusteeIndex < 1 || pd.TrusteeIndex > c.params.Trustees {
		return fmt.Errorf("%w: %d", ErrUnknownTrustee, pd.TrusteeIndex)
	}
	if !bytes.Equal(pd.Digest, c.digest) {
		return fmt.Errorf("%w: trustee %d", ErrInconsistentCiphertext, pd.TrusteeIndex)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.partials[pd.TrusteeIndex]; ok {
		if prev.Value.Equal(pd.Value) {
			return nil
		}
		log.Warnw("conflicting partial decryption", "trustee", pd.TrusteeIndex)
		return fmt.Errorf("%w: trustee %d", ErrDuplicateShareIndex, pd.TrusteeIndex)
	}
	c.partials[pd.TrusteeIndex] = pd
	if len(c.partials) == c.params.Threshold {
		close(c.ready)
	}
	return nil
}

// Count returns the number of distinct trustees that contributed.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.partials)
}

// Wait blocks until Threshold partials arrived and returns the combined
// plaintext. If ctx ends first it returns ErrThresholdNotMet.
func (c *Collector) Wait(ctx context.Context) (*big.Int, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %d of %d: %w", ErrThresholdNotMet, c.Count(), c.params.Threshold, ctx.Err())
	}
	c.mu.Lock()
	partials := make([]*PartialDecryption, 0, len(c.partials))
	for _, pd := range c.partials {
		partials = append(partials, pd)
	}
	c.mu.Unlock()
	return c.params.Combine(c.ciphertext, partials)
}
