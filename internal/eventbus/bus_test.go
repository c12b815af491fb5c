package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/eventbus"
)

func TestQueueRejectsUnregisteredKind(t *testing.T) {
	b := eventbus.New()
	err := b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren})
	require.ErrorIs(t, err, eventbus.ErrInvalidEventID)
}

func TestRegisterIsIdempotent(t *testing.T) {
	b := eventbus.New()
	var calls []string

	b.Register(eventbus.ActivateSiren, func(eventbus.Event) { calls = append(calls, "first") })
	b.Register(eventbus.ActivateSiren, func(eventbus.Event) { calls = append(calls, "second") })

	require.NoError(t, b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren}))
	b.ProcessNext()

	require.Equal(t, []string{"first"}, calls)
}

func TestProcessNextIsFIFO(t *testing.T) {
	b := eventbus.New()
	var order []int

	b.Register(eventbus.ActivateSiren, func(e eventbus.Event) {
		order = append(order, e.Body.(int))
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren, Body: i}))
	}
	b.ProcessNext()
	b.ProcessNext()
	b.ProcessNext()

	require.Equal(t, []int{0, 1, 2}, order)
}

func TestRequeueLandsAtTail(t *testing.T) {
	b := eventbus.New()
	var order []string
	retried := false

	b.Register(eventbus.KeypadApiSendAlivePing, func(e eventbus.Event) {
		order = append(order, "ping")
		if !retried {
			retried = true
			_ = b.Queue(e)
		}
	})
	b.Register(eventbus.ActivateSiren, func(eventbus.Event) {
		order = append(order, "siren")
	})

	require.NoError(t, b.Queue(eventbus.Event{Kind: eventbus.KeypadApiSendAlivePing}))
	require.NoError(t, b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren}))

	b.ProcessNext() // ping, re-queues itself
	b.ProcessNext() // siren should run before the retried ping
	b.ProcessNext() // retried ping

	require.Equal(t, []string{"ping", "siren", "ping"}, order)
}

func TestProcessNextOnEmptyQueueIsNoop(t *testing.T) {
	b := eventbus.New()
	require.NotPanics(t, func() { b.ProcessNext() })
}

func TestDeleteAllDropsQueuedEvents(t *testing.T) {
	b := eventbus.New()
	called := false
	b.Register(eventbus.ActivateSiren, func(eventbus.Event) { called = true })
	require.NoError(t, b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren}))

	b.DeleteAll()
	b.ProcessNext()

	require.False(t, called)
}

func TestQueueFailsOnceDisabled(t *testing.T) {
	b := eventbus.New()
	b.Register(eventbus.ActivateSiren, func(eventbus.Event) {})
	b.Disable()

	err := b.Queue(eventbus.Event{Kind: eventbus.ActivateSiren})
	require.ErrorIs(t, err, eventbus.ErrDisabled)
}
