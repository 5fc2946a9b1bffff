package stages

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	status  Status
	history History
}

func (j job) CurrentStatus() Status    { return j.status }
func (j job) RecordedHistory() History { return j.history }

func TestParseStatus(t *testing.T) {
	for _, s := range All() {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"", "oa", "Applied", "interview", "offer "} {
		_, err := ParseStatus(bad)
		assert.ErrorIs(t, err, ErrInvalidStatus, "token %q", bad)
	}
}

func TestStatusJSONBoundary(t *testing.T) {
	var body struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"final-interview"}`), &body))
	assert.Equal(t, FinalInterview, body.Status)

	err := json.Unmarshal([]byte(`{"status":"ghosted"}`), &body)
	assert.True(t, errors.Is(err, ErrInvalidStatus), "got %v", err)

	out, err := json.Marshal(History{Applied, OA})
	require.NoError(t, err)
	assert.JSONEq(t, `["applied","OA"]`, string(out))
}

func TestStatusScan(t *testing.T) {
	var s Status
	require.NoError(t, s.Scan([]byte("offer")))
	assert.Equal(t, Offer, s)
	assert.ErrorIs(t, s.Scan("hired"), ErrInvalidStatus)
	assert.ErrorIs(t, s.Scan(nil), ErrInvalidStatus)
}

func TestPresetChain(t *testing.T) {
	for _, s := range All() {
		chain, err := PresetChain(s)
		require.NoError(t, err)
		require.NotEmpty(t, chain)
		assert.Equal(t, Applied, chain[0], "chain for %s", s)
		assert.Equal(t, s, chain[len(chain)-1], "chain for %s", s)
	}

	chain, _ := PresetChain(FinalInterview)
	assert.Equal(t, []Status{Applied, Reply, InitialInterview, FinalInterview}, chain)

	chain[0] = Rejected
	again, _ := PresetChain(FinalInterview)
	assert.Equal(t, Applied, again[0], "callers must not be able to mutate the table")

	_, err := PresetChain(Status("hired"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuildHistoryProperties(t *testing.T) {
	priors := []History{
		nil,
		{},
		{Applied},
		{Applied, OA},
		{NoReply, Reply},
		{Applied, Reply, InitialInterview, FinalInterview, Offer, OfferRejected},
		{Rejected, OA, Accepted},
	}

	for _, s := range All() {
		chain, _ := PresetChain(s)
		for _, prior := range priors {
			got, err := BuildHistory(s, prior)
			require.NoError(t, err)

			assert.True(t, got.Contains(Applied))
			for _, p := range prior {
				assert.True(t, got.Contains(p), "%s lost prior stage %s", s, p)
			}
			for _, c := range chain {
				assert.True(t, got.Contains(c), "%s missing chain stage %s", s, c)
			}
			assert.Len(t, got.Set(), len(got), "duplicates in %v", got)

			again, err := BuildHistory(s, got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "not idempotent for %s / %v", s, prior)
		}
	}
}

func TestBuildHistoryMonotonicAcrossStatusChanges(t *testing.T) {
	path := []Status{Applied, OA, Rejected, Reply, InitialInterview, NoReply, Offer, Accepted}
	var h History
	for _, s := range path {
		next, err := BuildHistory(s, h)
		require.NoError(t, err)
		for _, prev := range h {
			assert.True(t, next.Contains(prev), "moving to %s dropped %s", s, prev)
		}
		h = next
	}
	assert.True(t, h.Contains(NoReply))
	assert.True(t, h.Contains(Rejected))
}

func TestBuildHistoryDisplayOrder(t *testing.T) {
	got, err := BuildHistory(Rejected, History{OA, Applied})
	require.NoError(t, err)
	assert.Equal(t, History{Applied, Reply, Rejected, OA}, got)
}

func TestBuildHistoryRejectsBadInput(t *testing.T) {
	_, err := BuildHistory(Status("unknown"), nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = BuildHistory(Applied, History{"interview"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAdvance(t *testing.T) {
	merged, tr, err := Advance(Applied, FinalInterview, History{Applied})
	require.NoError(t, err)
	assert.Equal(t, History{Applied, Reply, InitialInterview, FinalInterview}, merged)
	assert.Equal(t, History{Reply, InitialInterview, FinalInterview}, tr.Added)
	assert.Equal(t, Applied, tr.From)

	_, tr, err = Advance(FinalInterview, Reply, merged)
	require.NoError(t, err)
	assert.Empty(t, tr.Added)
}

func TestComputeFunnelStatsEmpty(t *testing.T) {
	stats, err := ComputeFunnelStats(nil)
	require.NoError(t, err)
	assert.Equal(t, FunnelStats{}, stats)
	assert.Empty(t, stats.Flows())
}

func TestScenarioAppliedOnly(t *testing.T) {
	h, err := BuildHistory(Applied, nil)
	require.NoError(t, err)
	assert.Equal(t, History{Applied}, h)

	stats, err := ComputeFunnelStats([]Tracked{job{status: Applied}})
	require.NoError(t, err)
	assert.Equal(t, FunnelStats{Total: 1, Applied: 1}, stats)
}

func TestScenarioFinalInterview(t *testing.T) {
	h, err := BuildHistory(FinalInterview, nil)
	require.NoError(t, err)
	assert.True(t, h.Equal(History{Applied, Reply, InitialInterview, FinalInterview}))

	stats, err := ComputeFunnelStats([]Tracked{job{status: FinalInterview}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count(InitialInterview))
	assert.Equal(t, 1, stats.Count(Reply))
	assert.Equal(t, 1, stats.ActiveInterviews)
	assert.Equal(t, 1, stats.InitialFromReplies)
}

func TestScenarioRejectedAfterOA(t *testing.T) {
	j := job{status: Rejected, history: History{Applied, OA}}
	h, err := BuildHistory(j.status, j.history)
	require.NoError(t, err)
	assert.True(t, h.Equal(History{Applied, OA, Reply, Rejected}))

	stats, err := ComputeFunnelStats([]Tracked{j})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RejectedFromOA)
	assert.Equal(t, 0, stats.RejectedFromInitial)
	assert.Equal(t, 1, stats.Reply, "preset chain for rejected always contributes reply")
}

func TestScenarioOfferAndRejected(t *testing.T) {
	jobs := []Tracked{job{status: Offer}, job{status: Rejected}}
	stats, err := ComputeFunnelStats(jobs)
	require.NoError(t, err)

	// Both presets contain reply; only the offer chain contains offer.
	replies, offers := 0, 0
	for _, j := range jobs {
		h, _ := BuildHistory(j.CurrentStatus(), j.RecordedHistory())
		if h.Contains(Reply) {
			replies++
		}
		if h.Contains(Offer) {
			offers++
		}
	}
	assert.Equal(t, float64(replies)/2*100, stats.ResponseRate)
	assert.Equal(t, float64(offers)/2*100, stats.OfferRate)
	assert.Equal(t, 100.0, stats.ResponseRate)
	assert.Equal(t, 50.0, stats.OfferRate)
	assert.Equal(t, 1, stats.RejectedFromInitial)
}

func TestRejectedAttributionPartition(t *testing.T) {
	jobs := []Tracked{
		job{status: Rejected, history: History{OA}},
		job{status: Rejected, history: History{OA, InitialInterview}},
		job{status: Rejected},
		job{status: Rejected, history: History{FinalInterview}},
		job{status: OA},
		job{status: NoReply},
	}
	stats, err := ComputeFunnelStats(jobs)
	require.NoError(t, err)
	assert.Equal(t, stats.Rejected, stats.RejectedFromOA+stats.RejectedFromInitial)
	assert.Equal(t, 1, stats.RejectedFromOA)
	assert.Equal(t, 1, stats.RejectedFromFinal)
	assert.Equal(t, 1, stats.InitialFromOA)
	assert.Equal(t, 6, stats.Applied)
	assert.Equal(t, 5, stats.Reply)
	assert.Equal(t, 83.3, stats.ResponseRate)
}

func TestComputeFunnelStatsInvalidStatus(t *testing.T) {
	_, err := ComputeFunnelStats([]Tracked{job{status: Applied}, job{status: "hired"}})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestFlows(t *testing.T) {
	stats, err := ComputeFunnelStats([]Tracked{
		job{status: Accepted},
		job{status: NoReply},
		job{status: Rejected, history: History{FinalInterview}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.RejectedFromFinal)

	want := []Flow{
		{Applied, Reply, 2},
		{Applied, NoReply, 1},
		{Reply, InitialInterview, 1},
		{InitialInterview, Rejected, 1},
		{InitialInterview, FinalInterview, 2},
		{FinalInterview, Offer, 1},
		{FinalInterview, Rejected, 1},
		{Offer, Accepted, 1},
	}
	assert.Equal(t, want, stats.Flows())
}

func TestFlowsRejectedAfterFinalOnly(t *testing.T) {
	stats, err := ComputeFunnelStats([]Tracked{job{status: Rejected, history: History{FinalInterview}}})
	require.NoError(t, err)

	var found bool
	for _, f := range stats.Flows() {
		assert.Positive(t, f.Value)
		if f.From == FinalInterview && f.To == Rejected {
			found = true
			assert.Equal(t, stats.RejectedFromFinal, f.Value)
		}
	}
	assert.True(t, found)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "OA Requested", OA.Label())
	assert.Equal(t, "Offer Rejected", OfferRejected.Label())
}
