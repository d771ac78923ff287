package queue

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/goccy/go-json"
)

// Codec converts messages to work queue payloads and back.
type Codec interface {
	// Pack serializes a message. Errors wrap ErrEncode.
	Pack(m *Message) ([]byte, error)
	// Unpack deserializes a payload. Errors wrap ErrDecode
	// and mean the delivery should be skipped.
	Unpack(data []byte) (*Message, error)
}

// Registry maps job type names to constructors.
//
// Constructors must return pointers, and jobs must be pushed as those same pointer types.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]func() Job
	byType map[reflect.Type]string
}

// NewRegistry creates an empty job type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]func() Job),
		byType: make(map[reflect.Type]string),
	}
}

// Register adds a job type under a stable name.
// Registering a name twice replaces the previous constructor.
func (r *Registry) Register(name string, factory func() Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = factory
	r.byType[reflect.TypeOf(factory())] = name
}

func (r *Registry) nameOf(job Job) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byType[reflect.TypeOf(job)]
	return name, ok
}

func (r *Registry) build(name string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// JSONCodec encodes messages as JSON envelopes.
type JSONCodec struct {
	Registry *Registry
}

// Assert JSONCodec implements Codec.
var _ Codec = (*JSONCodec)(nil)

type envelope struct {
	Job      string          `json:"job"`
	Attempts int             `json:"attempts"`
	Data     json.RawMessage `json:"data"`
}

// Pack serializes the message with its registered job name.
func (c *JSONCodec) Pack(m *Message) ([]byte, error) {
	if m == nil || m.job == nil {
		return nil, fmt.Errorf("%w: no job", ErrEncode)
	}
	name, ok := c.Registry.nameOf(m.job)
	if !ok {
		return nil, fmt.Errorf("%w: unregistered job type %T", ErrEncode, m.job)
	}
	data, err := json.Marshal(m.job)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEncode, err)
	}
	buf, err := json.Marshal(&envelope{
		Job:      name,
		Attempts: m.attempts,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEncode, err)
	}
	return buf, nil
}

// Unpack deserializes an envelope created by Pack.
func (c *JSONCodec) Unpack(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	if env.Attempts < 0 {
		return nil, fmt.Errorf("%w: negative attempts %d", ErrDecode, env.Attempts)
	}
	job, ok := c.Registry.build(env.Job)
	if !ok {
		return nil, fmt.Errorf("%w: unknown job type %q", ErrDecode, env.Job)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, job); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDecode, err)
		}
	}
	return &Message{job: job, attempts: env.Attempts}, nil
}
