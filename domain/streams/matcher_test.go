package streams

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autumndb/autumndb/internal/config"
)

func newTestMatcher() *Matcher {
	cfg := &config.Config{Stream: config.StreamConfig{RetryDelay: time.Millisecond}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMatcher(cfg, log)
}

func drain(t *testing.T, ch chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDispatchInsertEmitsOnMatch(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()

	requeried := false
	sub := NewSubscriber(nil, "", nil, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		requeried = true
		assert.Equal(t, id, gotID)
		return true, nil
	}, 4)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpInsert})

	ev := drain(t, sub.Events, time.Second)
	assert.True(t, requeried)
	assert.Equal(t, EventInsert, ev.Kind)
	assert.Equal(t, id, ev.ContractID)
	assert.True(t, sub.isSeen(id))
}

func TestDispatchInsertPrefilterRejectsWithoutRequery(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()

	requeried := false
	sub := NewSubscriber(nil, "", func(p Payload) (bool, bool) {
		return false, true
	}, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		requeried = true
		return true, nil
	}, 4)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpInsert})

	select {
	case ev := <-sub.Events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, requeried)
	assert.False(t, sub.isSeen(id))
}

func TestDispatchUpdateOnSeenRowThatNoLongerMatchesEmitsUnmatch(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()

	sub := NewSubscriber(nil, "", nil, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		return false, nil
	}, 4)
	sub.markSeen(id, id)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpUpdate})

	ev := drain(t, sub.Events, time.Second)
	assert.Equal(t, EventUnmatch, ev.Kind)
	assert.False(t, sub.isSeen(id))
}

func TestDispatchDeleteOnSeenRowEmitsDeleteWithoutRequery(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()

	requeried := false
	sub := NewSubscriber(nil, "", nil, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		requeried = true
		return true, nil
	}, 4)
	sub.markSeen(id, id)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpDelete})

	ev := drain(t, sub.Events, time.Second)
	assert.Equal(t, EventDelete, ev.Kind)
	assert.False(t, requeried)
	assert.False(t, sub.isSeen(id))
}

func TestDispatchLinkSkippedWhenSchemaHasNoLinks(t *testing.T) {
	m := newTestMatcher()
	sub := NewSubscriber(&jsonschema.Schema{}, "", nil, func(ctx context.Context, id uuid.UUID) (bool, error) {
		t.Fatal("requery should not run")
		return false, nil
	}, 4)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: uuid.New(), CardType: "link@owns", Type: OpInsert})

	select {
	case ev := <-sub.Events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchLinkUpdatesKnownRoot(t *testing.T) {
	m := newTestMatcher()
	linkID := uuid.New()
	rootID := uuid.New()

	schema := &jsonschema.Schema{Extra: map[string]any{"$$links": map[string]any{}}}
	sub := NewSubscriber(schema, "card", nil, func(ctx context.Context, id uuid.UUID) (bool, error) {
		assert.Equal(t, rootID, id)
		return true, nil
	}, 4)
	sub.markSeen(rootID, rootID)
	sub.markSeen(linkID, rootID)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: linkID, CardType: "link@owns", Type: OpUpdate})

	ev := drain(t, sub.Events, time.Second)
	assert.Equal(t, EventUpdate, ev.Kind)
	assert.Equal(t, rootID, ev.ContractID)
}

func TestUnregisterStopsFurtherDispatch(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()
	sub := NewSubscriber(nil, "", nil, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		return true, nil
	}, 4)
	m.Register(sub)
	m.Unregister(sub.ID)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpInsert})

	select {
	case ev := <-sub.Events:
		t.Fatalf("unexpected event after unregister: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchRequeryErrorIsReportedOnErrorsChannelNotTerminated(t *testing.T) {
	m := newTestMatcher()
	id := uuid.New()
	boom := assert.AnError

	calls := 0
	sub := NewSubscriber(nil, "", nil, func(ctx context.Context, gotID uuid.UUID) (bool, error) {
		calls++
		if calls == 1 {
			return false, boom
		}
		return true, nil
	}, 4)
	m.Register(sub)

	m.Dispatch(context.Background(), Payload{ID: id, Type: OpInsert})

	select {
	case err := <-sub.Errors:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("expected error on sub.Errors")
	}
	assert.False(t, sub.isSeen(id))

	// subscriber is still registered and matches on the next notification
	m.Dispatch(context.Background(), Payload{ID: id, Type: OpInsert})
	ev := drain(t, sub.Events, time.Second)
	assert.Equal(t, EventInsert, ev.Kind)
}

func TestPayloadIsLink(t *testing.T) {
	require.True(t, Payload{CardType: "link@owns"}.IsLink())
	require.False(t, Payload{CardType: "card"}.IsLink())
}
