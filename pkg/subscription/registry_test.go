package subscription

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/domain"
)

type stubClient struct {
	id domain.ClientID
}

func (c *stubClient) ID() domain.ClientID { return c.id }

func (c *stubClient) Send(ctx context.Context, message []byte) error { return nil }

func (c *stubClient) Receive(handler domain.MessageHandler) error { return nil }

func (c *stubClient) Close() error { return nil }

func (c *stubClient) Context() context.Context { return context.Background() }

func newTestRegistry() *Registry {
	return NewRegistry(logging.New(logging.Config{Level: "error", Format: "text"}))
}

func attach(t *testing.T, r *Registry, id domain.ClientID) domain.Client {
	t.Helper()
	client := &stubClient{id: id}
	r.Attach(client)
	return client
}

func recipientIDs(clients []domain.Client) []domain.ClientID {
	ids := make([]domain.ClientID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID())
	}
	return ids
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	for i := 0; i < 3; i++ {
		r.Subscribe(domain.CategoryKeyBlocks, "a")
	}

	assert.Equal(t, []string{"KeyBlocks"}, r.Subscriptions("a"))
}

func TestUnsubscribeAbsentIsNoError(t *testing.T) {
	r := newTestRegistry()

	r.Unsubscribe(domain.CategoryKeyBlocks, "ghost")
	r.UnsubscribeObject("ghost", "ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc")

	assert.Empty(t, r.Subscriptions("ghost"))
}

func TestSubscriptionListOrder(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	r.SubscribeObject("a", "ct_ouZib4wT9cNwgRA1pxgA63XEUd8eQRrG8PcePDEYogBc1VYTq")
	r.SubscribeObject("a", "ak_UQkorD6ZG4u2Ac8J2bEGEaE5jLABvWo6VHJhRDR9N7UnWHvzb")
	r.Subscribe(domain.CategoryTxUpdate, "a")
	r.Subscribe(domain.CategoryKeyBlocks, "a")

	// Vanilla categories in declaration order, then object IDs sorted.
	assert.Equal(t, []string{
		"KeyBlocks",
		"TxUpdate",
		"ak_UQkorD6ZG4u2Ac8J2bEGEaE5jLABvWo6VHJhRDR9N7UnWHvzb",
		"ct_ouZib4wT9cNwgRA1pxgA63XEUd8eQRrG8PcePDEYogBc1VYTq",
	}, r.Subscriptions("a"))
}

func TestTxUpdateIsListed(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	r.Subscribe(domain.CategoryTxUpdate, "a")

	assert.Equal(t, []string{"TxUpdate"}, r.Subscriptions("a"))

	r.Unsubscribe(domain.CategoryTxUpdate, "a")
	assert.Empty(t, r.Subscriptions("a"))
}

func TestObjectIndicesStayMirrored(t *testing.T) {
	r := newTestRegistry()
	object := "ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc"

	r.SubscribeObject("a", object)
	r.SubscribeObject("b", object)

	assertMirrored(t, r)

	r.UnsubscribeObject("a", object)
	assertMirrored(t, r)

	r.Disconnect("b")
	assertMirrored(t, r)

	assert.Empty(t, r.Subscriptions("a"))
	assert.Empty(t, r.Subscriptions("b"))
}

// assertMirrored checks that forward and reverse indices agree on every
// (client, object) pair.
func assertMirrored(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, objects := range r.forward {
		for _, object := range objects.ToSlice() {
			subscribers, ok := r.reverse[object]
			require.True(t, ok, "reverse entry missing for %s", object)
			require.True(t, subscribers.Contains(id), "reverse entry for %s missing client %s", object, id)
		}
	}

	for object, subscribers := range r.reverse {
		for _, id := range subscribers.ToSlice() {
			objects, ok := r.forward[id]
			require.True(t, ok, "forward entry missing for %s", id)
			require.True(t, objects.Contains(object), "forward entry for %s missing object %s", id, object)
		}
	}
}

func TestDisconnectPurgesEverything(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	for _, category := range domain.VanillaCategories {
		r.Subscribe(category, "a")
	}
	r.SubscribeObject("a", "ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc")
	r.SubscribeObject("a", "ct_ouZib4wT9cNwgRA1pxgA63XEUd8eQRrG8PcePDEYogBc1VYTq")

	r.Disconnect("a")

	assert.Empty(t, r.Subscriptions("a"))
	assert.Zero(t, r.ClientCount())

	candidate := domain.NewCandidate(domain.CategoryObject,
		json.RawMessage(`"ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc"`))
	assert.Empty(t, r.Recipients(candidate))

	// Disconnect can race an in-flight unsubscribe; a second call is a no-op.
	r.Disconnect("a")
	assert.Empty(t, r.Subscriptions("a"))
}

func TestCategoryIsolation(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "kb")
	attach(t, r, "mb")

	r.Subscribe(domain.CategoryKeyBlocks, "kb")
	r.Subscribe(domain.CategoryMicroBlocks, "mb")

	kbRecipients := r.Recipients(domain.NewCandidate(domain.CategoryKeyBlocks, json.RawMessage(`{}`)))
	mbRecipients := r.Recipients(domain.NewCandidate(domain.CategoryMicroBlocks, json.RawMessage(`{}`)))

	assert.Equal(t, []domain.ClientID{"kb"}, recipientIDs(kbRecipients))
	assert.Equal(t, []domain.ClientID{"mb"}, recipientIDs(mbRecipients))
}

func TestObjectRecipients(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "subscribed")
	attach(t, r, "other")

	r.SubscribeObject("subscribed", "mh_7iCkawgwm9akyXaBaEgfoL2Uhgz9k5b8vbSqx97spp9Ae1mLa")
	r.SubscribeObject("other", "ak_UQkorD6ZG4u2Ac8J2bEGEaE5jLABvWo6VHJhRDR9N7UnWHvzb")

	payload := json.RawMessage(`{"block_hash": "mh_7iCkawgwm9akyXaBaEgfoL2Uhgz9k5b8vbSqx97spp9Ae1mLa"}`)
	recipients := r.Recipients(domain.NewCandidate(domain.CategoryObject, payload))

	assert.Equal(t, []domain.ClientID{"subscribed"}, recipientIDs(recipients))
}

func TestObjectRecipientsDeduplicated(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	r.SubscribeObject("a", "mh_7iCkawgwm9akyXaBaEgfoL2Uhgz9k5b8vbSqx97spp9Ae1mLa")
	r.SubscribeObject("a", "ak_UQkorD6ZG4u2Ac8J2bEGEaE5jLABvWo6VHJhRDR9N7UnWHvzb")

	// Both subscribed objects appear in the payload; the client matches once.
	payload := json.RawMessage(`{
		"hash": "mh_7iCkawgwm9akyXaBaEgfoL2Uhgz9k5b8vbSqx97spp9Ae1mLa",
		"caller": "ak_UQkorD6ZG4u2Ac8J2bEGEaE5jLABvWo6VHJhRDR9N7UnWHvzb"
	}`)
	recipients := r.Recipients(domain.NewCandidate(domain.CategoryObject, payload))

	assert.Len(t, recipients, 1)
}

func TestRecipientsUnknownCategoryIsEmpty(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")
	r.Subscribe(domain.CategoryKeyBlocks, "a")

	recipients := r.Recipients(domain.Candidate{Category: domain.Category(42), Payload: json.RawMessage(`{}`)})

	assert.Empty(t, recipients)
}

func TestRecipientsSkipsDetachedClients(t *testing.T) {
	r := newTestRegistry()
	attach(t, r, "a")

	r.Subscribe(domain.CategoryTransactions, "a")
	r.Disconnect("a")

	recipients := r.Recipients(domain.NewCandidate(domain.CategoryTransactions, json.RawMessage(`{}`)))
	assert.Empty(t, recipients)
}
