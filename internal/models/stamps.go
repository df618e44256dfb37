package models

import "time"

// EpochSentinel is the lastChanged of a record that carries no timestamp.
var EpochSentinel = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// Stamps are the lifecycle timestamps shared by sites and inspections.
type Stamps struct {
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	ChangedAt *time.Time `json:"changedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// LastChanged is deletedAt, else changedAt, else createdAt, else EpochSentinel.
func (s Stamps) LastChanged() time.Time {
	switch {
	case s.DeletedAt != nil:
		return *s.DeletedAt
	case s.ChangedAt != nil:
		return *s.ChangedAt
	case s.CreatedAt != nil:
		return *s.CreatedAt
	default:
		return EpochSentinel
	}
}

// Deleted reports whether the record carries a tombstone.
func (s Stamps) Deleted() bool {
	return s.DeletedAt != nil
}

// Created initialises the stamps of a new record.
func Created(now time.Time) Stamps {
	t := normalize(now)
	return Stamps{CreatedAt: &t}
}

// Touch records a modification at now. The resulting LastChanged is always
// strictly after the previous one, even if the clock went backwards.
func (s *Stamps) Touch(now time.Time) {
	t := s.next(now)
	s.ChangedAt = &t
}

// MarkDeleted writes a tombstone at now with the same monotonic guarantee
// as Touch.
func (s *Stamps) MarkDeleted(now time.Time) {
	t := s.next(now)
	s.DeletedAt = &t
}

func (s *Stamps) next(now time.Time) time.Time {
	t := normalize(now)
	if prev := s.LastChanged(); !t.After(prev) {
		t = prev.Add(time.Millisecond)
	}
	return t
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
