package patient

import (
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
)

// SettingsStore is the part of the settings store the recency cache needs.
type SettingsStore interface {
	RecentPatients() []string
	Update(fn func(*settings.Settings) error) error
}

// Recent is the bounded most-recently-used list of patient identifiers,
// persisted in the settings record.
type Recent struct {
	store SettingsStore
}

func NewRecent(store SettingsStore) *Recent {
	return &Recent{store: store}
}

// List returns the identifiers most-recent-first.
func (r *Recent) List() []string {
	return r.store.RecentPatients()
}

// Touch moves id to the front of the list, dropping anything past
// settings.MaxRecentPatients, and returns the new list. The read-modify-write
// happens under the store's writer lock.
func (r *Recent) Touch(id string) ([]string, error) {
	id = NormalizeID(id)
	if err := ValidateID(id); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidRequest, "add recent patient", err)
	}

	var out []string
	err := r.store.Update(func(s *settings.Settings) error {
		s.RecentPatients = promote(s.RecentPatients, id, settings.MaxRecentPatients)
		out = append([]string{}, s.RecentPatients...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// promote returns list with id at the front, without duplicates, capped at max.
func promote(list []string, id string, max int) []string {
	next := make([]string, 0, len(list)+1)
	next = append(next, id)
	for _, existing := range list {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) > max {
		next = next[:max]
	}
	return next
}
