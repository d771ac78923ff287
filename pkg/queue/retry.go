package queue

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// DefaultRetryDelay is used when a retry schedule is empty.
const DefaultRetryDelay = 10 * time.Second

// RetryPolicy computes the delay before a retried job becomes ready again.
// attempts is the 1-based attempt count of the retried message.
type RetryPolicy interface {
	Delay(attempts int) time.Duration
}

// FixedDelay waits the same time before every retry.
type FixedDelay time.Duration

// Delay returns the fixed delay.
func (f FixedDelay) Delay(int) time.Duration {
	return time.Duration(f)
}

// ScheduleDelay waits a different time before each retry.
// Attempts past the end of the schedule use the last entry.
type ScheduleDelay []time.Duration

// Delay returns the schedule entry for the attempt.
func (s ScheduleDelay) Delay(attempts int) time.Duration {
	if len(s) == 0 {
		return DefaultRetryDelay
	}
	if attempts < 1 || attempts > len(s) {
		return s[len(s)-1]
	}
	return s[attempts-1]
}

// ParseSeconds reads a config duration.
// Numbers are seconds, strings may also carry a unit like "1m30s".
func ParseSeconds(v interface{}) (time.Duration, error) {
	switch v := v.(type) {
	case time.Duration:
		if v < 0 {
			return 0, fmt.Errorf("negative duration: %s", v)
		}
		return v, nil
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			if d < 0 {
				return 0, fmt.Errorf("negative duration: %s", d)
			}
			return d, nil
		}
	}
	sec, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("negative duration: %d", sec)
	}
	return time.Duration(sec) * time.Second, nil
}

// ParseRetrySeconds builds a policy from a config value
// holding either a number of seconds or a list of seconds.
// A nil value returns the default policy.
func ParseRetrySeconds(v interface{}) (RetryPolicy, error) {
	switch v.(type) {
	case nil:
		return FixedDelay(DefaultRetryDelay), nil
	case []interface{}, []int, []int64, []string:
		secs, err := cast.ToIntSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid retry schedule: %w", err)
		}
		schedule := make(ScheduleDelay, len(secs))
		for i, sec := range secs {
			if sec < 0 {
				return nil, fmt.Errorf("negative retry delay: %d", sec)
			}
			schedule[i] = time.Duration(sec) * time.Second
		}
		return schedule, nil
	default:
		sec, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay: %w", err)
		}
		if sec < 0 {
			return nil, fmt.Errorf("negative retry delay: %d", sec)
		}
		return FixedDelay(time.Duration(sec) * time.Second), nil
	}
}
