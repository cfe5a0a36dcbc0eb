package pipeline

import (
	"github.com/weftworks/weft/pkg/backend"
	"github.com/weftworks/weft/pkg/domain"
)

// Candidate is one backend as seen at selection time: its static descriptor,
// a rate-limit snapshot and the pre-computed cost estimate for this request.
type Candidate struct {
	Name       string
	Descriptor backend.Descriptor
	Snapshot   backend.RateLimitSnapshot
	Cost       float64
}

// SelectBackend chooses which backend serves a request. It is a pure
// function of its inputs: given a fixed availability snapshot the choice is
// deterministic, with candidate input order as the stable tie-break.
//
// Order of precedence: drop exhausted backends, honor the preferred backend
// if it survived, pick the cheapest when cost optimization is requested,
// prefer a strong-reasoning backend for complex descriptions, else take the
// first remaining candidate.
func SelectBackend(enriched EnrichedContext, preferred string, costOptimize bool, candidates []Candidate) (Candidate, error) {
	available := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Snapshot.Exhausted() {
			continue
		}
		available = append(available, candidate)
	}

	if len(available) == 0 {
		return Candidate{}, backend.NewConfigurationError("no backend available")
	}

	if preferred != "" {
		for _, candidate := range available {
			if candidate.Name == preferred {
				return candidate, nil
			}
		}
	}

	if costOptimize {
		cheapest := available[0]
		for _, candidate := range available[1:] {
			if candidate.Cost < cheapest.Cost {
				cheapest = candidate
			}
		}
		return cheapest, nil
	}

	if enriched.Analysis.Complexity == domain.ComplexityComplex {
		for _, candidate := range available {
			if candidate.Descriptor.StrongReasoning {
				return candidate, nil
			}
		}
	}

	return available[0], nil
}
