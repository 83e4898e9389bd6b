package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/paillier-tally/config"
	"github.com/vocdoni/paillier-tally/coordinator"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/log"
	"github.com/vocdoni/paillier-tally/storage"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
	"github.com/vocdoni/paillier-tally/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"golang.org/x/sync/errgroup"
)

func main() {
	candidates := flag.Int("candidates", 5, "number of candidates")
	voters := flag.Int("voters", 100, "number of voters")
	trustees := flag.Int("trustees", 5, "number of trustees holding a key share")
	thr := flag.Int("threshold", 3, "trustees required to decrypt")
	keyBits := flag.Int("keybits", config.DefaultKeyBits, "paillier modulus size in bits")
	dataDir := flag.String("datadir", "", "pebble database directory, in memory if empty")
	logLevel := flag.String("loglevel", log.LogLevelInfo, "log level (debug, info, warn, error)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	if *candidates < 1 || *voters < 0 {
		log.Fatal("need at least one candidate and a non negative number of voters")
	}

	var (
		database db.Database
		err      error
	)
	if *dataDir != "" {
		database, err = metadb.New(db.TypePebble, *dataDir)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		database = memdb.New()
	}

	coord, err := coordinator.New(database, 200*time.Millisecond)
	if err != nil {
		log.Fatal(err)
	}
	defer coord.Storage().Close()

	// Key generation and distribution
	keyStart := time.Now()
	pk, sk, err := paillier.GenerateKey(*keyBits)
	if err != nil {
		log.Fatal(err)
	}
	params, shares, err := threshold.DistributePrivateKey(pk, sk, *trustees, *thr)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("key distributed", "bits", pk.N.BitLen(), "duration", time.Since(keyStart).String())

	ids := make([]tally.CandidateID, *candidates)
	for i := range ids {
		ids[i] = tally.CandidateID(i + 1)
	}
	electionID, tl, err := coord.CreateElection(params, ids)
	if err != nil {
		log.Fatal(err)
	}

	// Voting
	votingStart := time.Now()
	expected := make(map[tally.CandidateID]uint64, len(ids))
	votes := make([]tally.CandidateID, *voters)
	for i := range votes {
		votes[i] = ids[rand.IntN(len(ids))]
		expected[votes[i]]++
	}
	bar := progressbar.Default(int64(len(votes)))
	g := new(errgroup.Group)
	g.SetLimit(16)
	for _, v := range votes {
		g.Go(func() error {
			if err := tl.RecordVote(v); err != nil {
				return err
			}
			return bar.Add(1)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	_ = bar.Finish()
	log.Infow("votes recorded", "ballots", tl.Votes(), "duration", time.Since(votingStart).String())

	final, root, err := coord.CloseElection(electionID, tl)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("election closed", "election", electionID.String(), "root", fmt.Sprintf("%x", root))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := coord.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer coord.Stop()

	// Only a random subset of trustees shows up
	decryptionStart := time.Now()
	for _, idx := range util.RandomSubset(*trustees, *thr) {
		tp, err := tally.PartialDecryptFinal(shares[idx-1], params, final)
		if err != nil {
			log.Fatal(err)
		}
		if err := coord.Storage().PushPartialDecryption(electionID, idx, tp); err != nil {
			log.Fatal(err)
		}
	}

	res, err := waitResult(ctx, coord.Storage(), electionID)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("election decrypted", "duration", time.Since(decryptionStart).String())

	printResult(res)
	for _, id := range res.Candidates {
		if res.Counts[id] != expected[id] {
			log.Fatalf("mismatch for candidate %d: got %d, expected %d", id, res.Counts[id], expected[id])
		}
	}
	color.Printf("<suc>OK</>: decrypted counts match the votes cast\n")
}

func printResult(res *tally.Result) {
	winners := make(map[tally.CandidateID]bool)
	for _, w := range res.Winners() {
		winners[w] = true
	}
	fmt.Printf("\nResults (%d ballots):\n", res.Total())
	for _, id := range res.Candidates {
		fmt.Printf("  - candidate %d : ", id)
		if winners[id] {
			color.Printf("<suc>%d</> (winner)\n", res.Counts[id])
			continue
		}
		color.Printf("<info>%d</>\n", res.Counts[id])
	}
}

// waitResult polls the store until the coordinator publishes the result.
func waitResult(ctx context.Context, stg *storage.Storage, id types.ElectionID) (*tally.Result, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		res, err := stg.Result(id)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for result: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
