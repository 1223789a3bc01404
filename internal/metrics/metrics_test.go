package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingDecisions.WithLabelValues("approved"))
	IncBookingDecision("approved")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingDecisions.WithLabelValues("approved")))

	created := testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, created+1, testutil.ToFloat64(bookingsCreated))

	SetWSClients(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(wsClients))

	ObserveRequest("/bookings", "POST", 201, 15*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(requestDuration))
}
