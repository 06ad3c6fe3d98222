package schedule

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoDate means the caller has not picked a date yet. It must be read as
// "nothing is orderable", never as "everything is free".
var ErrNoDate = errors.New("no date selected")

// Occupant is anything that can hold a slot on a practitioner's calendar.
type Occupant interface {
	OccupantID() string
	SlotDate() string
	SlotTime() string
	// BlocksSlot reports whether the occupant's status still claims the slot.
	BlocksSlot() bool
}

type filterOptions struct {
	excludeID string
}

type FilterOption func(*filterOptions)

// ExcludingID ignores the occupant with the given id, so that an appointment
// being rescheduled does not block its own current slot.
func ExcludingID(id string) FilterOption {
	return func(o *filterOptions) { o.excludeID = id }
}

// Availability is the result of filtering a grid for one date.
type Availability struct {
	Date      string   `json:"date"`
	Booked    []string `json:"booked"`
	Available []string `json:"available"`
}

// Booked returns the sorted set of HH:mm labels already claimed on date by
// blocking occupants. Occupants with an unparseable time are skipped.
func Booked[T Occupant](date string, occupants []T, opts ...FilterOption) ([]string, error) {
	day, err := candidateDay(date)
	if err != nil {
		return nil, err
	}

	var o filterOptions
	for _, opt := range opts {
		opt(&o)
	}

	set := make(map[string]struct{})
	for _, occ := range occupants {
		if !occ.BlocksSlot() {
			continue
		}
		if o.excludeID != "" && occ.OccupantID() == o.excludeID {
			continue
		}
		if d, ok := CalendarDate(occ.SlotDate()); !ok || d != day {
			continue
		}
		label, err := NormalizeTime(occ.SlotTime())
		if err != nil {
			continue
		}
		set[label] = struct{}{}
	}

	booked := make([]string, 0, len(set))
	for label := range set {
		booked = append(booked, label)
	}
	sort.Strings(booked)
	return booked, nil
}

// Available returns slots minus the booked set for date, keeping the order of
// slots.
func Available[T Occupant](date string, occupants []T, slots []string, opts ...FilterOption) ([]string, error) {
	a, err := Compute(date, occupants, slots, opts...)
	if err != nil {
		return nil, err
	}
	return a.Available, nil
}

// Compute runs the booked and available computation in one pass.
func Compute[T Occupant](date string, occupants []T, slots []string, opts ...FilterOption) (Availability, error) {
	booked, err := Booked(date, occupants, opts...)
	if err != nil {
		return Availability{}, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	available := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := taken[s]; ok {
			continue
		}
		available = append(available, s)
	}

	day, _ := CalendarDate(date)
	return Availability{Date: day, Booked: booked, Available: available}, nil
}

func candidateDay(date string) (string, error) {
	if date == "" {
		return "", ErrNoDate
	}
	day, ok := CalendarDate(date)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return day, nil
}
