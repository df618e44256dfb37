package models

import (
	"errors"
	"time"
)

// ErrOrphan marks an inspection whose site is not known locally.
var ErrOrphan = errors.New("orphan inspection")

// Site is a monitored nest box.
type Site struct {
	ID       string  `json:"id" validate:"required,max=64"`
	Region   string  `json:"region" validate:"required,max=32"`
	Name     string  `json:"name" validate:"max=256"`
	Category string  `json:"category" validate:"max=64"`
	Comment  string  `json:"comment" validate:"max=4096"`
	Image    string  `json:"image,omitempty" validate:"max=512"`
	Lat      float64 `json:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" validate:"longitude"`
	Stamps

	// Visits is filled when a region is loaded; it is not stored with the site.
	Visits []Inspection `json:"visits,omitempty" validate:"dive"`
}

// Inspection is one recorded visit to a Site.
type Inspection struct {
	ID      string    `json:"id" validate:"required,max=64"`
	SiteID  string    `json:"siteId" validate:"max=64"`
	Region  string    `json:"region" validate:"max=32"`
	Date    time.Time `json:"date"`
	Species string    `json:"species,omitempty" validate:"max=128"`
	Comment string    `json:"comment,omitempty" validate:"max=4096"`
	Image   string    `json:"image,omitempty" validate:"max=512"`
	Cleaned bool      `json:"cleaned"`
	Stamps
}

// Images lists every non-empty image path on the site and its visits.
func (s Site) Images() []string {
	var out []string
	if s.Image != "" {
		out = append(out, s.Image)
	}
	for _, v := range s.Visits {
		if v.Image != "" {
			out = append(out, v.Image)
		}
	}
	return out
}

// Bare returns a copy without attached visits.
func (s Site) Bare() Site {
	s.Visits = nil
	return s
}

// LiveVisits returns the visits without tombstones.
func (s Site) LiveVisits() []Inspection {
	out := make([]Inspection, 0, len(s.Visits))
	for _, v := range s.Visits {
		if !v.Deleted() {
			out = append(out, v)
		}
	}
	return out
}
