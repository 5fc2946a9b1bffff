package stages

import (
	"fmt"
	"math"
)

// Tracked is anything the funnel can aggregate: a current status plus whatever
// history has been recorded for it.
type Tracked interface {
	CurrentStatus() Status
	RecordedHistory() History
}

// FunnelStats is the aggregate the dashboard renders.
type FunnelStats struct {
	Total int `json:"total"`

	Applied          int `json:"applied"`
	Reply            int `json:"reply"`
	NoReply          int `json:"noReply"`
	InitialInterview int `json:"initialInterview"`
	OA               int `json:"OA"`
	FinalInterview   int `json:"finalInterview"`
	Offer            int `json:"offer"`
	Accepted         int `json:"accepted"`
	OfferRejected    int `json:"offerRejected"`
	Rejected         int `json:"rejected"`

	RejectedFromOA      int `json:"rejectedFromOA"`
	RejectedFromInitial int `json:"rejectedFromInitial"`
	RejectedFromFinal   int `json:"rejectedFromFinal"`
	InitialFromOA       int `json:"initialFromOA"`
	InitialFromReplies  int `json:"initialFromReplies"`
	ActiveInterviews    int `json:"activeInterviews"`

	// Percentages in [0, 100], one decimal.
	ResponseRate float64 `json:"responseRate"`
	OfferRate    float64 `json:"offerRate"`
}

// Count returns the counter for a single stage.
func (f FunnelStats) Count(s Status) int {
	switch s {
	case Applied:
		return f.Applied
	case Reply:
		return f.Reply
	case NoReply:
		return f.NoReply
	case InitialInterview:
		return f.InitialInterview
	case OA:
		return f.OA
	case FinalInterview:
		return f.FinalInterview
	case Offer:
		return f.Offer
	case Accepted:
		return f.Accepted
	case OfferRejected:
		return f.OfferRejected
	case Rejected:
		return f.Rejected
	}
	return 0
}

// ComputeFunnelStats aggregates jobs into stage counts using each job's effective
// history. An empty slice yields zero counts and zero rates.
func ComputeFunnelStats(jobs []Tracked) (FunnelStats, error) {
	histories := make([]map[Status]struct{}, 0, len(jobs))
	for i, j := range jobs {
		h, err := BuildHistory(j.CurrentStatus(), j.RecordedHistory())
		if err != nil {
			return FunnelStats{}, fmt.Errorf("funnel: job %d: %w", i, err)
		}
		histories = append(histories, h.Set())
	}

	count := func(match func(map[Status]struct{}) bool) int {
		n := 0
		for _, h := range histories {
			if match(h) {
				n++
			}
		}
		return n
	}
	has := func(h map[Status]struct{}, s Status) bool {
		_, ok := h[s]
		return ok
	}
	stage := func(s Status) int {
		return count(func(h map[Status]struct{}) bool { return has(h, s) })
	}

	total := len(jobs)
	stats := FunnelStats{
		Total:            total,
		Applied:          stage(Applied),
		Reply:            stage(Reply),
		NoReply:          stage(NoReply),
		InitialInterview: stage(InitialInterview),
		OA:               stage(OA),
		FinalInterview:   stage(FinalInterview),
		Offer:            stage(Offer),
		Accepted:         stage(Accepted),
		OfferRejected:    stage(OfferRejected),
		Rejected:         stage(Rejected),
	}

	stats.RejectedFromOA = count(func(h map[Status]struct{}) bool {
		return has(h, Rejected) && has(h, OA) && !has(h, InitialInterview)
	})
	stats.RejectedFromInitial = max(stats.Rejected-stats.RejectedFromOA, 0)
	stats.RejectedFromFinal = count(func(h map[Status]struct{}) bool {
		return has(h, Rejected) && has(h, FinalInterview)
	})
	stats.InitialFromOA = count(func(h map[Status]struct{}) bool {
		return has(h, OA) && has(h, InitialInterview)
	})
	stats.InitialFromReplies = count(func(h map[Status]struct{}) bool {
		return has(h, InitialInterview) && has(h, Reply) && !has(h, OA)
	})
	stats.ActiveInterviews = count(func(h map[Status]struct{}) bool {
		return has(h, InitialInterview) || has(h, FinalInterview)
	})
	stats.ResponseRate = percent(stats.Reply, total)
	stats.OfferRate = percent(stats.Offer, total)
	return stats, nil
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// Flow is one edge of the application-flow chart.
type Flow struct {
	From  Status `json:"from"`
	To    Status `json:"to"`
	Value int    `json:"value"`
}

// Flows returns the chart edges with a non-zero value.
func (f FunnelStats) Flows() []Flow {
	edges := []Flow{
		{Applied, Reply, f.Reply},
		{Applied, NoReply, f.NoReply},
		{Reply, InitialInterview, f.InitialFromReplies},
		{Reply, OA, f.OA},
		{OA, InitialInterview, f.InitialFromOA},
		{OA, Rejected, f.RejectedFromOA},
		{InitialInterview, Rejected, f.RejectedFromInitial},
		{InitialInterview, FinalInterview, f.FinalInterview},
		{FinalInterview, Offer, f.Offer},
		{FinalInterview, Rejected, f.RejectedFromFinal},
		{Offer, Accepted, f.Accepted},
		{Offer, OfferRejected, f.OfferRejected},
	}
	out := edges[:0]
	for _, e := range edges {
		if e.Value > 0 {
			out = append(out, e)
		}
	}
	return out
}
