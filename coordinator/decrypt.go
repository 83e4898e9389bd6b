package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/vocdoni/paillier-tally/state"
	"github.com/vocdoni/paillier-tally/storage"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
)

// TryDecrypt decrypts a closed election from the stored trustee
// submissions and stores the result. Before combining, every final
// ciphertext is checked against the election commitment. It returns
// ErrNotReady if the tally is still open or fewer than Threshold trustees
// submitted.
func (c *Coordinator) TryDecrypt(ctx context.Context, id types.ElectionID) (*tally.Result, error) {
	params, err := c.stg.Params(id)
	if err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	snap, err := c.stg.Tally(id)
	if err != nil {
		return nil, fmt.Errorf("load tally: %w", err)
	}
	if !snap.Closed {
		return nil, fmt.Errorf("%w: tally is open", ErrNotReady)
	}
	partials, err := c.stg.PartialDecryptions(id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load partial decryptions: %w", err)
	}
	if len(partials) < params.Threshold {
		return nil, fmt.Errorf("%w: %d of %d trustees", ErrNotReady, len(partials), params.Threshold)
	}

	final, err := tally.FinalFromSnapshot(params.PublicKey, snap)
	if err != nil {
		return nil, err
	}
	st, err := state.New(c.db, id)
	if err != nil {
		return nil, err
	}
	if err := st.Verify(final); err != nil {
		return nil, fmt.Errorf("check commitment: %w", err)
	}
	res, err := tally.DecryptFinal(ctx, params, final, partials)
	if err != nil {
		return nil, err
	}
	if err := c.stg.SetResult(id, res); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	return res, nil
}
