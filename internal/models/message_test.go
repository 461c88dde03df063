package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageMutable(t *testing.T) {
	msg := &Message{SenderID: "author"}

	assert.NoError(t, msg.Mutable("author"))
	assert.ErrorIs(t, msg.Mutable("someone-else"), ErrNotFoundOrForbidden)

	var missing *Message
	assert.ErrorIs(t, missing.Mutable("author"), ErrNotFoundOrForbidden)

	msg.IsDeleted = true
	assert.ErrorIs(t, msg.Mutable("author"), ErrAlreadyDeleted)
	// Ownership is checked before the tombstone, so strangers never learn
	// the message was deleted.
	assert.ErrorIs(t, msg.Mutable("someone-else"), ErrNotFoundOrForbidden)
}

func TestMessageReadByUser(t *testing.T) {
	msg := &Message{
		ReadBy: []ReadReceipt{
			{UserID: "reader", ReadAt: time.Now()},
		},
	}
	assert.True(t, msg.ReadByUser("reader"))
	assert.False(t, msg.ReadByUser("other"))
}

func TestParticipantOnline(t *testing.T) {
	now := time.Now()
	window := 5 * time.Minute

	assert.True(t, (&Participant{LastSeenAt: now.Add(-time.Minute)}).Online(now, window))
	assert.False(t, (&Participant{LastSeenAt: now.Add(-10 * time.Minute)}).Online(now, window))
	assert.False(t, (&Participant{}).Online(now, window))
}
