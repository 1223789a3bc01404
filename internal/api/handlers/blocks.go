package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

// UnblockResponse reports how many blocks a range removed.
type UnblockResponse struct {
	Deleted int64 `json:"deleted"`
}

// decodeRange reads {from, to} (RFC3339) plus an optional note.
func decodeRange(r *http.Request) (from, to time.Time, note string, problems map[string]string, err error) {
	var rawFrom, rawTo string
	if err = decodeFields(r, map[string]any{
		"from": &rawFrom,
		"to":   &rawTo,
		"note": &note,
	}); err != nil {
		return
	}

	problems = make(map[string]string)
	var perr error
	if from, perr = parseDate(rawFrom); perr != nil {
		problems["from"] = perr.Error()
	}
	if to, perr = parseDate(rawTo); perr != nil {
		problems["to"] = perr.Error()
	}
	if len(problems) == 0 && to.Before(from) {
		problems["to"] = "to must not be before from"
	}
	return from, to, strings.TrimSpace(note), problems, nil
}

// ListBlocks returns the manual blocks, latest first.
func ListBlocks(blocks *storage.BlockRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := blocks.List(r.Context())
		if err != nil {
			writeInternal(w, "Failed to query blocks")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, listResponse{Data: list})
	}
}

// CreateBlock closes [from, to] on the calendar.
func CreateBlock(blocks *storage.BlockRepository, feed *calendar.MergedFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, note, problems, err := decodeRange(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if len(problems) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid block range", problems)
			return
		}

		block := &models.Block{From: from, To: to, Note: note}
		if err := blocks.Create(r.Context(), block); err != nil {
			log.Printf("Failed to create block: %v", err)
			writeInternal(w, "Failed to create block")
			return
		}
		feed.Invalidate()

		middleware.WriteJSON(w, http.StatusCreated, block)
	}
}

// UnblockRange deletes every block overlapping [from, to].
func UnblockRange(blocks *storage.BlockRepository, feed *calendar.MergedFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, _, problems, err := decodeRange(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if len(problems) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid range", problems)
			return
		}

		deleted, err := blocks.DeleteOverlapping(r.Context(), from, to)
		if err != nil {
			writeInternal(w, "Failed to delete blocks")
			return
		}
		if deleted > 0 {
			feed.Invalidate()
		}

		middleware.WriteJSON(w, http.StatusOK, UnblockResponse{Deleted: deleted})
	}
}
