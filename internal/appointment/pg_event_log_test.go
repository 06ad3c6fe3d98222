package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgEventLog_InsertEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentCancelled, pgxmock.AnyArg(), pgxmock.AnyArg(), []byte(`{"from":"pending"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := NewPgEventLog(mock)
	err = log.InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentCancelled,
		AppointmentID: "appt-1",
		FacilityID:    "fac-1",
		Payload:       []byte(`{"from":"pending"}`),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgEventLog_InsertEventError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("relation does not exist"))

	err = NewPgEventLog(mock).InsertEvent(context.Background(), EventLog{EventType: EventAppointmentBooked})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert event log")
	assert.NoError(t, mock.ExpectationsWereMet())
}
