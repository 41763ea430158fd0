package realtime_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
)

func TestHub_DeliversToTopicOnly(t *testing.T) {
	hub := realtime.NewHub()
	a := hub.Subscribe("tokenA")
	b := hub.Subscribe("tokenB")
	defer a.Close()
	defer b.Close()

	require.NoError(t, hub.Publish(context.Background(), realtime.FileAdded("tokenA", "a.txt", "alice")))

	select {
	case event := <-a.Events():
		assert.Equal(t, constants.EventFileAdded, event.Type)
		assert.Equal(t, "tokenA", event.Token)

		var data realtime.FileAddedData
		require.NoError(t, json.Unmarshal(event.Data, &data))
		assert.Equal(t, "a.txt", data.Filename)
		assert.Equal(t, "alice", data.Uploader)
	default:
		t.Fatal("subscriber of tokenA should have received the event")
	}

	select {
	case event := <-b.Events():
		t.Fatalf("subscriber of tokenB should not receive %v", event)
	default:
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := realtime.NewHub()
	subs := []*realtime.Subscription{hub.Subscribe("tok"), hub.Subscribe("tok"), hub.Subscribe("tok")}

	delivered := hub.Deliver(realtime.SessionEnded("tok"))

	assert.Equal(t, 3, delivered)
	for _, sub := range subs {
		event := <-sub.Events()
		assert.Equal(t, constants.EventSessionEnded, event.Type)
		assert.JSONEq(t, `{}`, string(event.Data))
		sub.Close()
	}
	assert.Equal(t, 0, hub.SubscriberCount("tok"))
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := realtime.NewHub()
	sub := hub.Subscribe("tok")
	defer sub.Close()

	for i := 0; i < constants.SubscriberBufferSize; i++ {
		require.Equal(t, 1, hub.Deliver(realtime.AutoExpireSet("tok", i+1)))
	}

	assert.Equal(t, 0, hub.Deliver(realtime.AutoExpireSet("tok", 99)))
	assert.Len(t, sub.Events(), constants.SubscriberBufferSize)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := realtime.NewHub()
	sub := hub.Subscribe("tok")

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Deliver(realtime.SessionEnded("tok")))
}

func TestParticipantsUpdate_EmptySet(t *testing.T) {
	event := realtime.ParticipantsUpdate("tok", nil)

	assert.Equal(t, constants.EventParticipantsUpdate, event.Type)
	assert.JSONEq(t, `{"participants":[]}`, string(event.Data))
}
