package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_OverlappingCalls(t *testing.T) {
	tr := NewTracker()

	tr.start(OpCancel)
	tr.start(OpCancel)
	tr.finish(OpCancel, "Appointment not found")
	assert.True(t, tr.Loading(OpCancel))
	assert.Equal(t, "Appointment not found", tr.LastError(OpCancel))

	tr.finish(OpCancel, "")
	assert.False(t, tr.Loading(OpCancel))
	assert.Empty(t, tr.LastError(OpCancel))
}

func TestTracker_StartClearsError(t *testing.T) {
	tr := NewTracker()

	tr.start(OpBook)
	tr.finish(OpBook, "Slot already booked")
	assert.Equal(t, "Slot already booked", tr.LastError(OpBook))

	tr.start(OpBook)
	assert.Empty(t, tr.LastError(OpBook))
	assert.True(t, tr.Loading(OpBook))

	// an unmatched finish never drives the count negative
	tr.finish(OpBook, "")
	tr.finish(OpBook, "")
	tr.start(OpBook)
	assert.True(t, tr.Loading(OpBook))
}
