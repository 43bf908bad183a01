package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/airfare/internal/dates"
	"github.com/neexbeast/airfare/internal/fare"
)

// Directory resolves city names to airport codes.
type Directory interface {
	CodeOf(city string) (string, bool)
	Cities() []string
}

// Fetcher returns the price calendar for a directed airport pair.
type Fetcher interface {
	Fetch(ctx context.Context, origin, destination string) (fare.PriceMap, error)
}

// Service runs fare queries. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	dir     Directory
	fetcher Fetcher
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for default date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service.
func NewService(dir Directory, fetcher Fetcher, log *slog.Logger, opts ...Option) *Service {
	s := &Service{dir: dir, fetcher: fetcher, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type route struct {
	from, to         string
	fromCode, toCode string
}

func (s *Service) resolve(from, to string) (route, error) {
	fromCode, ok := s.dir.CodeOf(from)
	if !ok {
		return route{}, validationf("请确认输入的城市名称是否正确，未找到出发城市对应的机场代码")
	}
	toCode, ok := s.dir.CodeOf(to)
	if !ok {
		return route{}, validationf("请确认输入的城市名称是否正确，未找到到达城市对应的机场代码")
	}
	return route{from: from, to: to, fromCode: fromCode, toCode: toCode}, nil
}

func validateDate(label, key string) error {
	if err := dates.Validate(key); err != nil {
		return validationf("请确认%s格式是否正确(YYYYMMDD): %s", label, key)
	}
	return nil
}

// window validates every supplied bound, then replaces both bounds with the
// default lookahead when either is missing.
func (s *Service) window(start, end string) (dates.Window, error) {
	if start != "" {
		if err := validateDate("起始日期", start); err != nil {
			return dates.Window{}, err
		}
	}
	if end != "" {
		if err := validateDate("结束日期", end); err != nil {
			return dates.Window{}, err
		}
	}
	if start == "" || end == "" {
		return dates.DefaultWindow(s.now()), nil
	}
	return dates.Window{Start: start, End: end}, nil
}

func (s *Service) fetch(ctx context.Context, origin, destination string) (fare.PriceMap, error) {
	prices, err := s.fetcher.Fetch(ctx, origin, destination)
	if err != nil {
		s.log.Warn("fare fetch failed", "origin", origin, "destination", destination, "err", err)
		return nil, upstream(err)
	}
	return prices, nil
}

// run converts the outcome of op into an envelope. Panics are reported as
// failures rather than escaping the operation.
func (s *Service) run(op string, fn func() (any, error)) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("query panicked", "op", op, "recover", r)
			env = Fail(upstream(fmt.Errorf("%v", r)))
		}
	}()

	data, err := fn()
	if err != nil {
		s.log.Info("query failed", "op", op, "kind", KindOf(err).String(), "err", err)
		return Fail(err)
	}
	return OK(data)
}

// ListCities returns every supported city in directory order.
func (s *Service) ListCities(_ context.Context) Envelope {
	return OK(CityList{Cities: s.dir.Cities()})
}

// AirportCode resolves a single city name.
func (s *Service) AirportCode(_ context.Context, city string) Envelope {
	return s.run("airport_code", func() (any, error) {
		code, ok := s.dir.CodeOf(city)
		if !ok {
			return nil, validationf("请确认输入的城市名称是否正确，未找到%s对应的机场代码", city)
		}
		return AirportCode{City: city, Code: code}, nil
	})
}

// PriceOnDate returns the fare for a single YYYYMMDD date.
func (s *Service) PriceOnDate(ctx context.Context, startCity, endCity, date string) Envelope {
	return s.run("price_on_date", func() (any, error) {
		r, err := s.resolve(startCity, endCity)
		if err != nil {
			return nil, err
		}
		if err := validateDate("日期", date); err != nil {
			return nil, err
		}

		prices, err := s.fetch(ctx, r.fromCode, r.toCode)
		if err != nil {
			return nil, err
		}

		price, ok := prices.Get(date)
		if !ok {
			return nil, notFoundf("未找到从 %s 到 %s 在 %s 的机票价格信息", r.from, r.to, date)
		}
		return s.quote(r, fare.Price{Date: date, Value: price})
	})
}

// AllPrices lists every fare inside the window in fare source order.
func (s *Service) AllPrices(ctx context.Context, req RangeRequest) Envelope {
	return s.run("all_prices", func() (any, error) {
		r, w, err := s.prepare(req)
		if err != nil {
			return nil, err
		}

		prices, err := s.fetch(ctx, r.fromCode, r.toCode)
		if err != nil {
			return nil, err
		}

		filtered := prices.Filter(w)
		if len(filtered) == 0 {
			return nil, notFoundf("未找到从 %s 到 %s 在指定日期范围内的机票价格信息", r.from, r.to)
		}
		tickets, err := filtered.Entries()
		if err != nil {
			return nil, upstream(err)
		}
		return Listing{DepartureCity: r.from, ArrivalCity: r.to, Tickets: tickets}, nil
	})
}

// LowestPrice returns the cheapest fare inside the window. Ties go to the
// earliest entry in fare source order.
func (s *Service) LowestPrice(ctx context.Context, req RangeRequest) Envelope {
	return s.run("lowest_price", func() (any, error) {
		r, w, err := s.prepare(req)
		if err != nil {
			return nil, err
		}

		prices, err := s.fetch(ctx, r.fromCode, r.toCode)
		if err != nil {
			return nil, err
		}

		lowest, ok := prices.Filter(w).Lowest()
		if !ok {
			return nil, notFoundf("未找到从 %s 到 %s 在指定日期范围内的最低价格机票", r.from, r.to)
		}
		return s.quote(r, lowest)
	})
}

// RoundTrip lists outbound and return fares over one window. The legs are
// fetched concurrently. Empty legs are not failures, and neither is a single
// failed leg; the operation fails only when both legs fail.
func (s *Service) RoundTrip(ctx context.Context, req RangeRequest) Envelope {
	return s.run("round_trip", func() (any, error) {
		r, w, err := s.prepare(req)
		if err != nil {
			return nil, err
		}

		var (
			outbound, inbound       fare.PriceMap
			outboundErr, inboundErr error
		)

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("outbound fetch panicked: %v", rec)
				}
			}()
			outbound, outboundErr = s.fetch(gCtx, r.fromCode, r.toCode)
			return nil
		})
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("return fetch panicked: %v", rec)
				}
			}()
			inbound, inboundErr = s.fetch(gCtx, r.toCode, r.fromCode)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, upstream(err)
		}

		if outboundErr != nil && inboundErr != nil {
			return nil, outboundErr
		}

		trip := RoundTrip{DepartureCity: r.from, ArrivalCity: r.to}
		if trip.OutboundTickets, err = legEntries(outbound.Filter(w), outboundErr, &trip.OutboundError); err != nil {
			return nil, err
		}
		if trip.ReturnTickets, err = legEntries(inbound.Filter(w), inboundErr, &trip.ReturnError); err != nil {
			return nil, err
		}
		return trip, nil
	})
}

func legEntries(prices fare.PriceMap, fetchErr error, errText *string) ([]fare.Entry, error) {
	if fetchErr != nil {
		*errText = fetchErr.Error()
		return []fare.Entry{}, nil
	}
	entries, err := prices.Entries()
	if err != nil {
		return nil, upstream(err)
	}
	return entries, nil
}

func (s *Service) prepare(req RangeRequest) (route, dates.Window, error) {
	r, err := s.resolve(req.StartCity, req.EndCity)
	if err != nil {
		return route{}, dates.Window{}, err
	}
	w, err := s.window(req.StartDate, req.EndDate)
	if err != nil {
		return route{}, dates.Window{}, err
	}
	return r, w, nil
}

func (s *Service) quote(r route, p fare.Price) (Quote, error) {
	e, err := fare.NewEntry(p)
	if err != nil {
		return Quote{}, upstream(err)
	}
	return Quote{
		DepartureCity: r.from,
		ArrivalCity:   r.to,
		Date:          e.Date,
		Weekday:       e.Weekday,
		Price:         e.Price,
	}, nil
}
