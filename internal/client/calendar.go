package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/storage/models"
)

type rangeBody struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Note string    `json:"note,omitempty"`
}

// MergedCalendarText downloads the merged iCalendar feed.
func (c *Client) MergedCalendarText(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/calendar/merged.ics", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading calendar: %w", err)
	}
	return string(data), nil
}

// MergedCalendar downloads and parses the merged feed.
func (c *Client) MergedCalendar(ctx context.Context) ([]calendar.Event, error) {
	text, err := c.MergedCalendarText(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.ParseICS(text), nil
}

// ListBlocks returns the manual blocks.
func (c *Client) ListBlocks(ctx context.Context) ([]models.Block, error) {
	var out listBody[models.Block]
	if err := c.doJSON(ctx, http.MethodGet, "/blocks", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// BlockRange closes the selected days from through to, both inclusive. The
// stored block ends the day after to.
func (c *Client) BlockRange(ctx context.Context, from, to time.Time, note string) (*models.Block, error) {
	var block models.Block
	in := rangeBody{From: from, To: to.AddDate(0, 0, 1), Note: note}
	if err := c.doJSON(ctx, http.MethodPost, "/blocks", in, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// UnblockRange removes every block overlapping [from, to] and returns how
// many were deleted. Use calendar.UnblockRange to widen a selection that
// only touches a block.
func (c *Client) UnblockRange(ctx context.Context, from, to time.Time) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/blocks/unblock", rangeBody{From: from, To: to}, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ListSubscriptions returns the external calendar subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context) ([]models.CalendarSubscription, error) {
	var out listBody[models.CalendarSubscription]
	if err := c.doJSON(ctx, http.MethodGet, "/ical", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AddSubscription subscribes to an external platform's feed.
func (c *Client) AddSubscription(ctx context.Context, platform, feedURL string) (*models.CalendarSubscription, error) {
	var sub models.CalendarSubscription
	in := map[string]string{"platform": platform, "url": feedURL}
	if err := c.doJSON(ctx, http.MethodPost, "/ical", in, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its imported events.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/ical/"+url.PathEscape(id), nil, nil)
}
