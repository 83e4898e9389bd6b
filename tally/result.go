package tally

import "slices"

// Result holds the decrypted per-candidate counts.
type Result struct {
	Candidates []CandidateID          `json:"candidates" cbor:"1,keyasint"`
	Counts     map[CandidateID]uint64 `json:"counts" cbor:"2,keyasint"`
}

// Total returns the sum of all counts.
func (r *Result) Total() uint64 {
	var total uint64
	for _, v := range r.Counts {
		total += v
	}
	return total
}

// Winners returns the candidates with the highest count, in ballot order.
// Ties return every tied candidate.
func (r *Result) Winners() []CandidateID {
	if len(r.Counts) == 0 {
		return nil
	}
	var best uint64
	for _, v := range r.Counts {
		best = max(best, v)
	}
	var winners []CandidateID
	for _, id := range r.Candidates {
		if v, ok := r.Counts[id]; ok && v == best {
			winners = append(winners, id)
		}
	}
	return slices.Clip(winners)
}
