package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-haven/booking/internal/api"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/pricing"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
	"github.com/ocean-haven/booking/internal/websocket"
)

const ownerEmail = "owner@example.com"

type fixture struct {
	url string
	hub *websocket.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := api.NewRouter(db, api.Services{
		Hub:          hub,
		Issuer:       auth.NewIssuer("client-test", time.Hour),
		Pricing:      pricing.DefaultSettings(),
		Location:     time.UTC,
		IsOwnerEmail: func(email string) bool { return email == ownerEmail },
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{url: srv.URL, hub: hub}
}

func (f *fixture) register(t *testing.T, email string) *Client {
	t.Helper()
	session, err := New(Session{BaseURL: f.url}).Register(context.Background(), email, "secret1", "Test User")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	return New(session)
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func validRequest() BookingRequest {
	return BookingRequest{
		CheckIn:        day(6),
		CheckOut:       day(9),
		GuestName:      "Ana",
		GuestEmail:     "ana@example.com",
		NumberOfGuests: 2,
	}
}

func TestBookingRequestValidate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	cases := map[string]func(*BookingRequest){
		"dates":            func(r *BookingRequest) { r.CheckOut = time.Time{} },
		"check_out":        func(r *BookingRequest) { r.CheckOut = r.CheckIn },
		"guest_name":       func(r *BookingRequest) { r.GuestName = "  " },
		"guest_email":      func(r *BookingRequest) { r.GuestEmail = "ana@example" },
		"number_of_guests": func(r *BookingRequest) { r.NumberOfGuests = 0 },
	}
	for field, mutate := range cases {
		req := validRequest()
		mutate(&req)

		var verr *ValidationError
		require.ErrorAs(t, req.Validate(), &verr, field)
		assert.Equal(t, field, verr.Field)
	}
}

func TestAPIErrorFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"conflict","message":"Booking is confirmed"}`))
	}))
	defer srv.Close()

	_, err := New(Session{BaseURL: srv.URL}).ApproveBooking(context.Background(), "b1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "conflict", apiErr.Code)
	assert.Equal(t, "Booking is confirmed", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusConflict))
}

func TestAPIErrorFromPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(Session{BaseURL: srv.URL + "/"}).ListBookings(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)
	f.register(t, "guest@example.com")

	anon := New(Session{BaseURL: f.url})
	_, err := anon.Login(context.Background(), "guest@example.com", "nope-nope")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	session, err := anon.Login(context.Background(), "guest@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, f.url, session.BaseURL)

	me, err := New(session).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", me.Email)
	assert.False(t, me.IsOwner)

	_, err = anon.Me(context.Background())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.register(t, "ana@example.com")
	owner := f.register(t, ownerEmail)

	_, err := guest.CreateBooking(ctx, BookingRequest{GuestName: "Ana"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	booking, err := guest.CreateBooking(ctx, validRequest(), pricing.Default())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(15000), booking.TotalPrice)

	mine, err := guest.MyBookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = guest.ListBookings(ctx)
	assert.True(t, IsStatus(err, http.StatusForbidden))

	approved, err := owner.ApproveBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, approved.Status)

	_, err = owner.ApproveBooking(ctx, booking.ID)
	assert.True(t, IsStatus(err, http.StatusConflict))

	stats, err := owner.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ConfirmedBookings)
	assert.Equal(t, int64(15000), stats.TotalRevenue)

	rejected, err := owner.RejectBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, rejected.Status)
}

func TestBlocksAndMergedCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, ownerEmail)

	block, err := owner.BlockRange(ctx, day(20), day(22), "Manutenção")
	require.NoError(t, err)
	assert.Equal(t, day(23), block.To.UTC())

	blocks, err := owner.ListBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	events, err := New(Session{BaseURL: f.url}).MergedCalendar(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, calendar.SourceBlock, calendar.NormalizeSource(events[0]))
	assert.Equal(t, day(20), events[0].From.UTC())
	assert.Equal(t, day(22), events[0].To.UTC())

	// A selection right after the block only touches it; widen it first.
	from, to := calendar.UnblockRange(events, day(23), day(24))
	deleted, err := owner.UnblockRange(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, err = owner.MergedCalendar(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, ownerEmail)

	_, err := owner.AddSubscription(ctx, "VRBO", "not a url")
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	sub, err := owner.AddSubscription(ctx, "VRBO", "https://www.vrbo.com/icalendar/abc.ics")
	require.NoError(t, err)

	subs, err := owner.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "VRBO", subs[0].Platform)

	require.NoError(t, owner.DeleteSubscription(ctx, sub.ID))
	assert.True(t, IsStatus(owner.DeleteSubscription(ctx, sub.ID), http.StatusNotFound))
}

func TestPricingRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, ownerEmail)

	settings, err := owner.Pricing(ctx)
	require.NoError(t, err)
	assert.Equal(t, pricing.SchemeWeekdayWeekend, settings.Scheme)

	settings.WeekdayRate = 5500
	updated, err := owner.UpdatePricing(ctx, *settings)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), updated.WeekdayRate)

	booking, err := New(Session{BaseURL: f.url}).CreateBooking(ctx, validRequest(), pricing.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(16500), booking.TotalPrice)
}

func TestMessagesAndStream(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guest := f.register(t, "ana@example.com")
	owner := f.register(t, ownerEmail)

	booking, err := guest.CreateBooking(ctx, validRequest(), nil)
	require.NoError(t, err)

	_, err = guest.SendMessage(ctx, booking.ID, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	stream, err := guest.StreamMessages(ctx, booking.ID)
	require.NoError(t, err)
	defer stream.Close()
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = owner.SendMessage(ctx, booking.ID, "Bem-vinda!")
	require.NoError(t, err)

	select {
	case msg := <-stream.Messages():
		assert.Equal(t, "Bem-vinda!", msg.Message)
		assert.True(t, msg.IsFromOwner)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for streamed message")
	}

	thread, err := guest.ListMessages(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)

	cancel()
	select {
	case _, ok := <-stream.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
	assert.NoError(t, stream.Err())
}

func TestStreamMessagesRejectsStranger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guest := f.register(t, "ana@example.com")
	booking, err := guest.CreateBooking(ctx, validRequest(), nil)
	require.NoError(t, err)

	stranger := f.register(t, "eve@example.com")
	_, err = stranger.StreamMessages(ctx, booking.ID)
	assert.True(t, IsStatus(err, http.StatusForbidden))
}
