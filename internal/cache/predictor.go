package cache

import (
	"sort"
	"sync"
)

// PredictorConfig controls adaptive mode. Decay and MinConfidence are only
// consulted when Adaptive is true; TopK caps Predict's output in both modes.
type PredictorConfig struct {
	Adaptive bool
	// Decay multiplies all of a path's outgoing edge weights each time a
	// new transition from that path is observed, so older transitions lose
	// influence over time. Must be in (0, 1].
	Decay float64
	// MinConfidence is the floor on w_ab/total[a] below which a candidate
	// is dropped from Predict's output.
	MinConfidence float64
	// TopK caps the number of candidates Predict returns.
	TopK int
}

// DefaultPredictorConfig returns the non-adaptive default: every observed
// transition increments its edge weight by one, forever, and Predict
// returns up to 8 candidates with no confidence floor.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{Adaptive: false, TopK: 8}
}

// edge pairs a successor with its weight and the observation sequence
// number it was last touched at, used to break weight ties by recency.
type edge struct {
	weight   float64
	lastSeen uint64
}

// Predictor is a first-order Markov chain over normalized paths (C3): for
// every observed transition a -> b it increments w_ab, and Predict ranks
// a's successors by weight to produce prefetch candidates for whatever path
// was last observed.
type Predictor struct {
	mu     sync.Mutex
	cfg    PredictorConfig
	succ   map[string]map[string]*edge
	total  map[string]float64
	last   string
	hasLast bool
	seq    uint64
}

// NewPredictor creates a predictor with the given configuration.
func NewPredictor(cfg PredictorConfig) *Predictor {
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.Adaptive && cfg.Decay <= 0 {
		cfg.Decay = 1
	}
	return &Predictor{
		cfg:   cfg,
		succ:  make(map[string]map[string]*edge),
		total: make(map[string]float64),
	}
}

// Observe records path as the next access in the stream. If a prior path
// was observed and differs from path, the transition prior -> path is
// strengthened. In adaptive mode, all of prior's outgoing weights are
// decayed before the increment, which is how stale transitions lose
// influence over a long-running mount.
func (p *Predictor) Observe(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++

	if p.hasLast && p.last != path {
		p.observeTransition(p.last, path)
	}
	p.last = path
	p.hasLast = true
}

func (p *Predictor) observeTransition(a, b string) {
	successors, ok := p.succ[a]
	if !ok {
		successors = make(map[string]*edge)
		p.succ[a] = successors
	}

	if p.cfg.Adaptive && p.cfg.Decay < 1 {
		total := 0.0
		for _, e := range successors {
			e.weight *= p.cfg.Decay
			total += e.weight
		}
		p.total[a] = total
		p.pruneLocked(a)
	}

	e, ok := successors[b]
	if !ok {
		e = &edge{}
		successors[b] = e
	}
	e.weight++
	e.lastSeen = p.seq
	p.total[a] = p.total[a] + 1
}

// pruneEpsilon is the adaptive-mode threshold below which a decayed edge is
// removed; total[a] is left to be recomputed lazily from what remains.
const pruneEpsilon = 1e-6

// pruneLocked removes near-zero edges from a's successor set. Caller must
// hold mu.
func (p *Predictor) pruneLocked(a string) {
	successors := p.succ[a]
	for b, e := range successors {
		if e.weight < pruneEpsilon {
			delete(successors, b)
		}
	}
}

// Predict returns the successors of the last observed path, ranked by
// weight descending and tie-broken by most-recent update, truncated to
// TopK. In adaptive mode, candidates whose relative weight falls below
// MinConfidence are dropped. If the last path has never been observed as a
// source, or none has been observed yet, Predict returns an empty slice.
func (p *Predictor) Predict() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasLast {
		return nil
	}
	successors, ok := p.succ[p.last]
	if !ok || len(successors) == 0 {
		return nil
	}

	type candidate struct {
		path     string
		weight   float64
		lastSeen uint64
	}
	candidates := make([]candidate, 0, len(successors))
	total := p.total[p.last]
	for path, e := range successors {
		if e.weight <= 0 {
			continue
		}
		if p.cfg.Adaptive && total > 0 && e.weight/total < p.cfg.MinConfidence {
			continue
		}
		candidates = append(candidates, candidate{path: path, weight: e.weight, lastSeen: e.lastSeen})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].lastSeen > candidates[j].lastSeen
	})

	if len(candidates) > p.cfg.TopK {
		candidates = candidates[:p.cfg.TopK]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}

// Reset clears last-observed state, as if no access has ever been seen.
// Edge weights (the learned chain) are preserved.
func (p *Predictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasLast = false
	p.last = ""
}
