package query

import "github.com/neexbeast/airfare/internal/fare"

// RangeRequest names a directed city pair and an optional inclusive date
// window in YYYYMMDD form.
type RangeRequest struct {
	StartCity string
	EndCity   string
	StartDate string
	EndDate   string
}

// CityList is the payload of ListCities.
type CityList struct {
	Cities []string `json:"cities"`
}

// AirportCode is the payload of AirportCode.
type AirportCode struct {
	City string `json:"city"`
	Code string `json:"code"`
}

// Quote is a single dated fare on a route.
type Quote struct {
	DepartureCity string `json:"departure_city"`
	ArrivalCity   string `json:"arrival_city"`
	Date          string `json:"date"`
	Weekday       string `json:"weekday"`
	Price         int    `json:"price"`
}

// Listing is every fare on a route inside a window.
type Listing struct {
	DepartureCity string       `json:"departure_city"`
	ArrivalCity   string       `json:"arrival_city"`
	Tickets       []fare.Entry `json:"tickets"`
}

// RoundTrip pairs outbound and return fares over one window. A leg whose
// fetch failed has an empty list and its error text set.
type RoundTrip struct {
	DepartureCity   string       `json:"departure_city"`
	ArrivalCity     string       `json:"arrival_city"`
	OutboundTickets []fare.Entry `json:"outbound_tickets"`
	ReturnTickets   []fare.Entry `json:"return_tickets"`
	OutboundError   string       `json:"outbound_error,omitempty"`
	ReturnError     string       `json:"return_error,omitempty"`
}
