package fare

import "github.com/neexbeast/airfare/internal/dates"

// Price is one date key and its fare as returned by the fare source.
type Price struct {
	Date  string
	Value int
}

// PriceMap is a date → price listing in the order the fare source returned
// it. Listing order and minimum tie-breaks both follow that order.
type PriceMap []Price

// Get returns the price for an exact date key.
func (m PriceMap) Get(date string) (int, bool) {
	for _, p := range m {
		if p.Date == date {
			return p.Value, true
		}
	}
	return 0, false
}

// Filter keeps the entries whose date key lies inside w, preserving order.
// A zero window returns m itself.
func (m PriceMap) Filter(w dates.Window) PriceMap {
	if w.IsZero() {
		return m
	}
	out := make(PriceMap, 0, len(m))
	for _, p := range m {
		if w.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out
}

// Lowest returns the strictly smallest price; ties keep the earliest entry.
// The boolean is false for an empty map.
func (m PriceMap) Lowest() (Price, bool) {
	if len(m) == 0 {
		return Price{}, false
	}
	lowest := m[0]
	for _, p := range m[1:] {
		if p.Value < lowest.Value {
			lowest = p
		}
	}
	return lowest, true
}

// Entry is the display form of a single fare.
type Entry struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Price   int    `json:"price"`
}

// NewEntry formats p for output. The date key must already be validated.
func NewEntry(p Price) (Entry, error) {
	display := dates.Format(p.Date)
	weekday, err := dates.Weekday(display)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Date: display, Weekday: weekday, Price: p.Value}, nil
}

// Entries formats every price in m, keeping its order.
func (m PriceMap) Entries() ([]Entry, error) {
	out := make([]Entry, 0, len(m))
	for _, p := range m {
		e, err := NewEntry(p)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
