package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"op":"Subscribe", "payload": "MicroBlocks"}`))
	require.NoError(t, err)
	assert.Equal(t, OpSubscribe, msg.Op)
	assert.Equal(t, CategoryMicroBlocks, msg.Payload)
	assert.Empty(t, msg.Target)

	msg, err = DecodeMessage([]byte(`{"op":"Subscribe", "payload": "Object", "target": "ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc"}`))
	require.NoError(t, err)
	assert.Equal(t, OpSubscribe, msg.Op)
	assert.Equal(t, CategoryObject, msg.Payload)
	assert.Equal(t, "ak_2eid5UDLCVxNvqL95p9UtHmHQKbiFQahRfoo839DeQuBo8A3Qc", msg.Target)
}

func TestDecodeMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: `subscribe please`, want: ErrInvalidMessage},
		{name: "missing op", data: `{"payload": "KeyBlocks"}`, want: ErrInvalidMessage},
		{name: "missing payload", data: `{"op": "Subscribe"}`, want: ErrInvalidMessage},
		{name: "unknown op", data: `{"op": "Snooze", "payload": "KeyBlocks"}`, want: ErrUnknownOp},
		{name: "unknown payload", data: `{"op": "Subscribe", "payload": "Blobs"}`, want: ErrUnknownCategory},
		{name: "object without target", data: `{"op": "Subscribe", "payload": "Object"}`, want: ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	for _, category := range VanillaCategories {
		parsed, err := ParseCategory(category.String())
		require.NoError(t, err)
		assert.Equal(t, category, parsed)
		assert.True(t, parsed.IsVanilla())
	}

	parsed, err := ParseCategory("Object")
	require.NoError(t, err)
	assert.Equal(t, CategoryObject, parsed)
	assert.False(t, parsed.IsVanilla())
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := EncodeEnvelope(NewCandidate(CategoryTransactions, []byte(`{"hash":"th_x"}`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"subscription":"Transactions","payload":{"hash":"th_x"}}`, string(data))
}
