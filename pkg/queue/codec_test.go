package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec(t *testing.T) {
	codec := &JSONCodec{Registry: testRegistry()}
	msg := NewMessage(&testJob{Name: "a", Retries: 2})
	data, err := codec.Pack(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job":"test","attempts":0,"data":{"name":"a","retries":2}}`, string(data))
	// Deterministic.
	again, err := codec.Pack(msg)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := codec.Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Attempts())
	assert.Equal(t, &testJob{Name: "a", Retries: 2}, decoded.Job())

	// Attempts survive the round trip.
	next, _ := decoded.NextAttempt()
	data, err = codec.Pack(next)
	require.NoError(t, err)
	decoded, err = codec.Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Attempts())
}

func TestJSONCodec_PackErrors(t *testing.T) {
	codec := &JSONCodec{Registry: testRegistry()}
	_, err := codec.Pack(NewMessage(nil))
	assert.ErrorIs(t, err, ErrEncode)
	// Registered as pointer, pushed as value.
	_, err = codec.Pack(NewMessage(unregisteredJob{}))
	assert.ErrorIs(t, err, ErrEncode)
}

func TestJSONCodec_UnpackErrors(t *testing.T) {
	codec := &JSONCodec{Registry: testRegistry()}
	for _, payload := range []string{
		"",
		"not json",
		`{"job":"unknown","attempts":0,"data":{}}`,
		`{"job":"test","attempts":-1,"data":{}}`,
		`{"job":"test","attempts":0,"data":{"name":5}}`,
	} {
		msg, err := codec.Unpack([]byte(payload))
		assert.ErrorIs(t, err, ErrDecode, payload)
		assert.Nil(t, msg, payload)
	}
}

func TestMessage_NextAttempt(t *testing.T) {
	msg := NewMessage(&testJob{Retries: 2})
	first, ok := msg.NextAttempt()
	assert.True(t, ok)
	assert.Equal(t, 1, first.Attempts())
	assert.Equal(t, 0, msg.Attempts(), "original message must not change")
	second, ok := first.NextAttempt()
	assert.True(t, ok)
	assert.Equal(t, 2, second.Attempts())
	third, ok := second.NextAttempt()
	assert.False(t, ok)
	assert.Equal(t, 3, third.Attempts())

	_, ok = NewMessage(&plainJob{}).NextAttempt()
	assert.False(t, ok, "jobs without MaxAttempts never retry")
}

type unregisteredJob struct{}

func (unregisteredJob) Handle(_ context.Context) error { return nil }
