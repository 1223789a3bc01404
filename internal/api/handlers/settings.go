package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/ocean-haven/booking/internal/api/middleware"
	"github.com/ocean-haven/booking/internal/pricing"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/storage/models"
)

// PricingStore reads the active rate configuration. Owner overrides are
// persisted in the settings table; the configured defaults apply otherwise.
type PricingStore struct {
	repo     *storage.SettingsRepository
	fallback pricing.Settings
}

// NewPricingStore creates a store backed by the settings table.
func NewPricingStore(repo *storage.SettingsRepository, fallback pricing.Settings) *PricingStore {
	return &PricingStore{repo: repo, fallback: fallback}
}

// Current returns the active pricing settings.
func (s *PricingStore) Current(ctx context.Context) (pricing.Settings, error) {
	setting, err := s.repo.Get(ctx, models.SettingPricing)
	if err != nil {
		return pricing.Settings{}, err
	}
	current := s.fallback
	// Callers may decode into the result; keep the fallback slices private.
	current.WeekendDays = slices.Clone(s.fallback.WeekendDays)
	current.Tiers = slices.Clone(s.fallback.Tiers)
	if setting == nil {
		return current, nil
	}

	if err := json.Unmarshal([]byte(setting.Value), &current); err != nil {
		return pricing.Settings{}, fmt.Errorf("decoding pricing setting: %w", err)
	}
	return current, nil
}

// Save validates and persists settings.
func (s *PricingStore) Save(ctx context.Context, settings pricing.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding pricing setting: %w", err)
	}
	return s.repo.Set(ctx, models.SettingPricing, string(data))
}

// GetPricing returns the active rate configuration and discount tiers.
func GetPricing(store *PricingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := store.Current(r.Context())
		if err != nil {
			writeInternal(w, "Failed to load pricing")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, settings)
	}
}

// UpdatePricing replaces the rate configuration. Fields left out of the
// request keep their current values.
func UpdatePricing(store *PricingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := store.Current(r.Context())
		if err != nil {
			writeInternal(w, "Failed to load pricing")
			return
		}

		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&settings); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := settings.Validate(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		if err := store.Save(r.Context(), settings); err != nil {
			writeInternal(w, "Failed to update pricing")
			return
		}

		middleware.WriteJSON(w, http.StatusOK, settings)
	}
}
