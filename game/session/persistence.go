package session

import (
	"errors"
	"time"
)

// Recorder stores records of ended sessions. Only the Info snapshot is
// kept; level state never outlives its session.
type Recorder interface {
	// Save stores the record of an ended session
	Save(info Info) error

	// Load retrieves a record by session ID
	Load(id string) (Info, error)

	// Delete removes a record
	Delete(id string) error

	// ListAll returns all recorded session IDs
	ListAll() ([]string, error)

	// Exists checks if a record exists
	Exists(id string) bool
}

// PruneHistory deletes records of sessions that ended before cutoff and
// returns how many were removed.
func PruneHistory(r Recorder, cutoff time.Time) (int, error) {
	ids, err := r.ListAll()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		info, err := r.Load(id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return removed, err
		}
		if !info.Created.Add(info.Elapsed).Before(cutoff) {
			continue
		}
		if err := r.Delete(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
