package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSendMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload SendMessagePayload
		field   string
		tag     string
	}{
		{name: "no recipient", payload: SendMessagePayload{Content: "hi"}, field: "RecipientID", tag: "required_without"},
		{name: "no content", payload: SendMessagePayload{RecipientID: "b"}, field: "Content", tag: "required"},
		{name: "bad email", payload: SendMessagePayload{ReceiverEmail: "nope", Content: "hi"}, field: "ReceiverEmail", tag: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, tag, ok := InvalidField(Validate(tt.payload))
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.tag, tag)
		})
	}

	assert.NoError(t, Validate(SendMessagePayload{ReceiverEmail: "b@example.com", Content: "hi"}))
	assert.NoError(t, Validate(SendMessagePayload{RecipientID: "b", Content: "hi"}))
}

func TestValidateSignalPayload(t *testing.T) {
	assert.Error(t, Validate(OfferPayload{RecipientID: "b"}))
	assert.Error(t, Validate(OfferPayload{RecipientID: "b", Offer: json.RawMessage("null")}))
	assert.NoError(t, Validate(OfferPayload{RecipientID: "b", Offer: json.RawMessage(`{"sdp":"x"}`)}))
}

func TestDecodeEmptyData(t *testing.T) {
	var p StartCallPayload
	require.NoError(t, Decode(nil, &p))
	assert.Empty(t, p.RecipientID)

	require.NoError(t, Decode(json.RawMessage(`{"recipientId":"b"}`), &p))
	assert.Equal(t, "b", p.RecipientID)
}

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("zed", "amy")
	assert.Equal(t, "amy", a)
	assert.Equal(t, "zed", b)

	a2, b2 := CanonicalPair("amy", "zed")
	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

func TestCanonicalPairIsByteOrder(t *testing.T) {
	a, b := CanonicalPair("alice", "Bob")
	assert.Equal(t, "Bob", a)
	assert.Equal(t, "alice", b)
}
