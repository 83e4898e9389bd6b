// Package coordinator drives the lifecycle of elections stored in the
// artifact store: it closes tallies, commits their final ciphertexts and,
// in the background, decrypts every closed election once enough trustees
// submitted their partial decryptions.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/log"
	"github.com/vocdoni/paillier-tally/state"
	"github.com/vocdoni/paillier-tally/storage"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
	"go.vocdoni.io/dvote/db"
)

// ErrNotReady is returned by TryDecrypt when the election is still open or
// has not collected enough trustee submissions.
var ErrNotReady = errors.New("coordinator: election not ready for decryption")

// Coordinator is a worker that decrypts closed elections.
type Coordinator struct {
	stg      *storage.Storage
	db       db.Database
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator over the database. Artifacts and commitment
// trees are kept in the same database under different prefixes.
func New(database db.Database, interval time.Duration) (*Coordinator, error) {
	if database == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	return &Coordinator{
		stg:      storage.New(database),
		db:       database,
		interval: interval,
	}, nil
}

// Storage returns the artifact store used by the coordinator.
func (c *Coordinator) Storage() *storage.Storage {
	return c.stg
}

// CreateElection stores the threshold parameters and an empty tally for a
// new election and returns the running tally. On error the returned id is
// the zero value and the election is not listed.
func (c *Coordinator) CreateElection(params *threshold.Params, candidates []tally.CandidateID) (types.ElectionID, *tally.Tally, error) {
	if err := params.Validate(); err != nil {
		return types.ElectionID{}, nil, err
	}
	t, err := tally.New(params.PublicKey, candidates)
	if err != nil {
		return types.ElectionID{}, nil, err
	}
	id := types.NewElectionID()
	// elections are listed by their params, which are written last
	if err := c.stg.SetTally(id, t.Snapshot()); err != nil {
		return types.ElectionID{}, nil, err
	}
	if err := c.stg.SetParams(id, params); err != nil {
		return types.ElectionID{}, nil, err
	}
	log.Infow("election created",
		"election", id.String(),
		"candidates", len(candidates),
		"trustees", params.Trustees,
		"threshold", params.Threshold)
	return id, t, nil
}

// CloseElection finalizes the tally, commits the final ciphertexts and
// stores the closed snapshot. It returns the final tally, to be handed to
// the trustees, and the commitment root. Calling it again after a partial
// failure completes the close, as long as the same tally is passed.
func (c *Coordinator) CloseElection(id types.ElectionID, t *tally.Tally) (*tally.Final, []byte, error) {
	final := t.Finalize()
	st, err := state.New(c.db, id)
	if err != nil {
		return nil, nil, err
	}
	committed, err := st.Committed()
	if err != nil {
		return nil, nil, err
	}
	if committed {
		if err := st.Verify(final); err != nil {
			return nil, nil, fmt.Errorf("election %s committed with another tally: %w", id, err)
		}
	} else if _, err := st.Commit(final); err != nil {
		return nil, nil, fmt.Errorf("commit final tally: %w", err)
	}

	if err := c.stg.SetTally(id, final.Snapshot()); err != nil {
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("store final tally: %w", err)
		}
		if err := c.checkStoredFinal(id, st); err != nil {
			return nil, nil, err
		}
	}
	root, err := st.Root()
	if err != nil {
		return nil, nil, err
	}
	return final, root, nil
}

// checkStoredFinal verifies the closed snapshot already in the store
// against the commitment.
func (c *Coordinator) checkStoredFinal(id types.ElectionID, st *state.State) error {
	params, err := c.stg.Params(id)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	snap, err := c.stg.Tally(id)
	if err != nil {
		return fmt.Errorf("load tally: %w", err)
	}
	stored, err := tally.FinalFromSnapshot(params.PublicKey, snap)
	if err != nil {
		return err
	}
	if err := st.Verify(stored); err != nil {
		return fmt.Errorf("stored final tally of election %s: %w", id, err)
	}
	return nil
}

// Start launches the background decryption loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("coordinator already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
	return nil
}

// Stop halts the background loop and waits for it to exit. It is safe to
// call Stop multiple times.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Infow("coordinator stopped")
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	log.Infow("coordinator started", "interval", c.interval.String())
	for {
		c.processElections(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processElections tries to decrypt every election without a result.
func (c *Coordinator) processElections(ctx context.Context) {
	ids, err := c.stg.ListElections()
	if err != nil {
		log.Errorw(err, "failed to list elections")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.stg.Result(id); err == nil {
			continue
		}
		startTime := time.Now()
		res, err := c.TryDecrypt(ctx, id)
		switch {
		case errors.Is(err, ErrNotReady), errors.Is(err, context.Canceled):
			continue
		case err != nil:
			log.Warnw("failed to decrypt election",
				"election", id.String(),
				"error", err.Error())
			continue
		}
		log.Infow("election decrypted",
			"election", id.String(),
			"ballots", res.Total(),
			"duration", time.Since(startTime).String())
	}
}
