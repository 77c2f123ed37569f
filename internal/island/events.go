package island

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var eventTagPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// AgentEvent is a single event reported by an agent.
type AgentEvent struct {
	Type      string   `json:"type"`
	Source    string   `json:"source"`
	Target    any      `json:"target"`
	Timestamp float64  `json:"timestamp"`
	Tags      []string `json:"tags"`
	Success   *bool    `json:"success,omitempty"`
}

// Time converts the event's epoch timestamp.
func (e AgentEvent) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// TimestampOp selects which side of a timestamp events must fall on.
type TimestampOp string

const (
	After  TimestampOp = "gt"
	Before TimestampOp = "lt"
)

// EventFilter narrows the agent events returned by AgentEvents. Zero values
// mean "no constraint".
type EventFilter struct {
	Type        string
	Tag         string
	Success     *bool
	TimestampOp TimestampOp
	Timestamp   float64
}

// Validate applies the same rules the Island enforces on the query.
func (f EventFilter) Validate() error {
	var errs []error
	if f.Tag != "" && !eventTagPattern.MatchString(f.Tag) {
		errs = append(errs, fmt.Errorf("invalid event tag %q", f.Tag))
	}
	switch f.TimestampOp {
	case "", After, Before:
	default:
		errs = append(errs, fmt.Errorf("invalid timestamp operator %q, expected gt or lt", f.TimestampOp))
	}
	return errors.Join(errs...)
}

// Query encodes the filter as URL query parameters.
func (f EventFilter) Query() url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Success != nil {
		q.Set("success", strconv.FormatBool(*f.Success))
	}
	if f.TimestampOp != "" {
		q.Set("timestamp", string(f.TimestampOp)+":"+strconv.FormatFloat(f.Timestamp, 'f', -1, 64))
	}
	return q
}

// ParseSuccess parses a "true"/"false" flag value; empty means unset.
func ParseSuccess(s string) (*bool, error) {
	switch strings.TrimSpace(s) {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid value for success %q, expected \"true\" or \"false\"", s)
	}
}

// ParseTimestampConstraint parses "{gt,lt}:<timestamp>".
func ParseTimestampConstraint(s string) (TimestampOp, float64, error) {
	if s == "" {
		return "", 0, nil
	}
	op, ts, ok := strings.Cut(s, ":")
	if !ok || ts == "" || (op != string(After) && op != string(Before)) {
		return "", 0, fmt.Errorf("invalid timestamp argument %q, expected format: \"{gt,lt}:<timestamp>\"", s)
	}
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid timestamp argument %q, expected timestamp to be a number", s)
	}
	return TimestampOp(op), v, nil
}

// AgentEvents lists agent events matching filter.
func (c *Client) AgentEvents(ctx context.Context, filter EventFilter) ([]AgentEvent, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("island: %w", err)
	}
	var events []AgentEvent
	if err := c.fetchQuery(ctx, PathAgentEvents, filter.Query(), &events); err != nil {
		return nil, err
	}
	return events, nil
}
