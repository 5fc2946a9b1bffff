// Package stages owns the application-status taxonomy, the preset stage chain for each
// status, stage-history merging and funnel aggregation. Everything here is pure and
// safe for concurrent use.
package stages

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrInvalidStatus is returned for any token outside the status enumeration.
var ErrInvalidStatus = errors.New("invalid job status")

// Status is the current stage of a job application. The string values are the
// persisted wire tokens and must not change.
type Status string

const (
	Applied          Status = "applied"
	Reply            Status = "reply"
	NoReply          Status = "no-reply"
	InitialInterview Status = "initial-interview"
	OA               Status = "OA"
	FinalInterview   Status = "final-interview"
	Offer            Status = "offer"
	Accepted         Status = "accepted"
	OfferRejected    Status = "offer-rejected"
	Rejected         Status = "rejected"
)

// canonical is the funnel order used for display and for ordering extra history.
var canonical = []Status{
	Applied, Reply, NoReply, InitialInterview, OA,
	FinalInterview, Offer, Accepted, OfferRejected, Rejected,
}

var labels = map[Status]string{
	Applied:          "Applied",
	Reply:            "Reply",
	NoReply:          "No Reply",
	InitialInterview: "Initial Interview",
	OA:               "OA Requested",
	FinalInterview:   "Final Interview",
	Offer:            "Offer",
	Accepted:         "Accepted",
	OfferRejected:    "Offer Rejected",
	Rejected:         "Rejected",
}

// All returns every status in canonical funnel order.
func All() []Status {
	out := make([]Status, len(canonical))
	copy(out, canonical)
	return out
}

// ParseStatus converts a raw token to a Status. Matching is exact: "oa" or
// "Applied" are rejected just like unknown words.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	_, ok := presets[s]
	return ok
}

// Label is the human-readable name shown on the dashboard.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// String returns the wire token.
func (s Status) String() string { return string(s) }

// MarshalText refuses to encode a status outside the taxonomy.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, string(s))
	}
	return []byte(s), nil
}

// UnmarshalText accepts only exact status tokens.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan validates statuses read back from SQL storage.
func (s *Status) Scan(value any) error {
	switch v := value.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: null", ErrInvalidStatus)
	default:
		return fmt.Errorf("stages: cannot scan %T into Status", value)
	}
}

// Value validates statuses written to SQL storage.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, string(s))
	}
	return string(s), nil
}
