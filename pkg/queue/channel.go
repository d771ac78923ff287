package queue

import "fmt"

// Selectors accepted by Driver.Reload and Driver.Flush.
const (
	QueueFailed  = "failed"
	QueueTimeout = "timeout"
)

// Channels holds the names derived from one base channel.
type Channels struct {
	Main    string // beanstalkd tube
	Delayed string // reserved for delayed bookkeeping
	Failed  string // Redis list of dead-lettered payloads
	Timeout string // Redis list of timed out payloads
}

// ChannelsFor creates Channels with a common base name.
func ChannelsFor(base string) Channels {
	return Channels{
		Main:    base,
		Delayed: base + ":delayed",
		Failed:  base + ":failed",
		Timeout: base + ":timeout",
	}
}

// Get looks up a channel by name.
func (c Channels) Get(name string) (string, error) {
	switch name {
	case "channel":
		return c.Main, nil
	case "delayed":
		return c.Delayed, nil
	case QueueFailed:
		return c.Failed, nil
	case QueueTimeout:
		return c.Timeout, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
}

// list resolves a Reload/Flush selector to a list name.
// The empty selector picks the failed list.
func (c Channels) list(queue string) (string, error) {
	switch queue {
	case "", QueueFailed:
		return c.Failed, nil
	case QueueTimeout:
		return c.Timeout, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQueue, queue)
	}
}
