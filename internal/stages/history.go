package stages

import "fmt"

// presets is the assumed path to each status. It is a visualization heuristic,
// not a transition graph: real histories may skip or add stages.
var presets = map[Status][]Status{
	Applied:          {Applied},
	Reply:            {Applied, Reply},
	NoReply:          {Applied, NoReply},
	InitialInterview: {Applied, Reply, InitialInterview},
	OA:               {Applied, Reply, OA},
	FinalInterview:   {Applied, Reply, InitialInterview, FinalInterview},
	Offer:            {Applied, Reply, InitialInterview, FinalInterview, Offer},
	Accepted:         {Applied, Reply, InitialInterview, FinalInterview, Offer, Accepted},
	OfferRejected:    {Applied, Reply, InitialInterview, FinalInterview, Offer, OfferRejected},
	Rejected:         {Applied, Reply, Rejected},
}

// PresetChain returns a copy of the canonical stage chain for status. Every chain
// starts with Applied.
func PresetChain(status Status) ([]Status, error) {
	chain, ok := presets[status]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, string(status))
	}
	out := make([]Status, len(chain))
	copy(out, chain)
	return out, nil
}

// History is the set of stages a job is known to have passed through.
type History []Status

// Contains reports whether s is in the history.
func (h History) Contains(s Status) bool {
	for _, v := range h {
		if v == s {
			return true
		}
	}
	return false
}

// Set returns the history as a lookup set.
func (h History) Set() map[Status]struct{} {
	set := make(map[Status]struct{}, len(h))
	for _, v := range h {
		set[v] = struct{}{}
	}
	return set
}

// Equal compares two histories as sets.
func (h History) Equal(other History) bool {
	a, b := h.Set(), other.Set()
	if len(a) != len(b) {
		return false
	}
	for s := range a {
		if _, ok := b[s]; !ok {
			return false
		}
	}
	return true
}

// Validate returns an error for the first token outside the enumeration.
func (h History) Validate() error {
	for _, v := range h {
		if !v.Valid() {
			return fmt.Errorf("stage history: %w %q", ErrInvalidStatus, string(v))
		}
	}
	return nil
}

// BuildHistory merges existing with the preset chain for status and Applied.
//
// The result is ordered for display: the preset chain first, then any other
// recorded stages in canonical order. It is always a superset of existing and
// BuildHistory(status, BuildHistory(status, h)) equals BuildHistory(status, h).
func BuildHistory(status Status, existing History) (History, error) {
	chain, err := PresetChain(status)
	if err != nil {
		return nil, err
	}
	if err := existing.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[Status]struct{}, len(chain)+len(existing)+1)
	out := make(History, 0, len(chain)+len(existing)+1)
	add := func(s Status) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range chain {
		add(s)
	}
	add(Applied)

	extra := existing.Set()
	for _, s := range canonical {
		if _, ok := extra[s]; ok {
			add(s)
		}
	}
	return out, nil
}

// Transition describes one move of a job from one status to another and the
// stages it added to the history.
type Transition struct {
	From  Status  `json:"from"`
	To    Status  `json:"to"`
	Added History `json:"added"`
}

// Advance applies a status change to a recorded history and reports which stages
// were newly added.
func Advance(from, to Status, existing History) (History, Transition, error) {
	merged, err := BuildHistory(to, existing)
	if err != nil {
		return nil, Transition{}, err
	}
	prior := existing.Set()
	added := History{}
	for _, s := range merged {
		if _, ok := prior[s]; !ok {
			added = append(added, s)
		}
	}
	return merged, Transition{From: from, To: to, Added: added}, nil
}
