package tools

import (
	"context"
	"fmt"

	"github.com/neexbeast/airfare/internal/query"
)

// Prompt describes the tool surface to model-driven callers.
const Prompt = "This server exposes tools for querying real-time flight ticket prices between major Chinese cities. " +
	"Every tool returns a JSON object {success: bool, data: object/list, error: string or null}. " +
	"All city names must be in Chinese (e.g. '北京', '上海'). " +
	"Dates use the YYYYMMDD format. If a date range is required and not fully provided, it defaults to today through today+10 days. " +
	"Error details are always provided in the 'error' field if a call fails. " +
	"Available tools: " +
	"list_supported_cities(); " +
	"get_airport_code(city); " +
	"get_ticket_price_by_date(start_city, end_city, date); " +
	"get_all_ticket_prices(start_city, end_city, start_date, end_date); " +
	"get_lowest_ticket_price(start_city, end_city, start_date, end_date); " +
	"get_round_trip_prices(start_city, end_city, start_date, end_date)."

// FareQueries is the set of operations exposed as tools.
type FareQueries interface {
	ListCities(ctx context.Context) query.Envelope
	AirportCode(ctx context.Context, city string) query.Envelope
	PriceOnDate(ctx context.Context, startCity, endCity, date string) query.Envelope
	AllPrices(ctx context.Context, req query.RangeRequest) query.Envelope
	LowestPrice(ctx context.Context, req query.RangeRequest) query.Envelope
	RoundTrip(ctx context.Context, req query.RangeRequest) query.Envelope
}

var (
	startCityParam = Param{Name: "start_city", Description: "出发城市", Required: true}
	endCityParam   = Param{Name: "end_city", Description: "到达城市", Required: true}
	rangeParams    = []Param{
		startCityParam,
		endCityParam,
		{Name: "start_date", Description: "起始日期（YYYYMMDD）"},
		{Name: "end_date", Description: "结束日期（YYYYMMDD）"},
	}
)

func rangeRequest(args Args) query.RangeRequest {
	return query.RangeRequest{
		StartCity: args.Get("start_city"),
		EndCity:   args.Get("end_city"),
		StartDate: args.Get("start_date"),
		EndDate:   args.Get("end_date"),
	}
}

// RegisterFareTools registers every fare query on r.
func RegisterFareTools(r *Registry, q FareQueries) error {
	defs := []struct {
		name, description string
		params            []Param
		exec              Executor
	}{
		{
			name:        "list_supported_cities",
			description: "获取所有支持的城市",
			exec: func(ctx context.Context, _ Args) query.Envelope {
				return q.ListCities(ctx)
			},
		},
		{
			name:        "get_airport_code",
			description: "查询城市对应的机场代码",
			params:      []Param{{Name: "city", Description: "城市名", Required: true}},
			exec: func(ctx context.Context, args Args) query.Envelope {
				return q.AirportCode(ctx, args.Get("city"))
			},
		},
		{
			name:        "get_ticket_price_by_date",
			description: "查询指定日期的机票价格",
			params:      []Param{startCityParam, endCityParam, {Name: "date", Description: "查询日期（YYYYMMDD）", Required: true}},
			exec: func(ctx context.Context, args Args) query.Envelope {
				return q.PriceOnDate(ctx, args.Get("start_city"), args.Get("end_city"), args.Get("date"))
			},
		},
		{
			name:        "get_all_ticket_prices",
			description: "查询区间内所有机票价格",
			params:      rangeParams,
			exec: func(ctx context.Context, args Args) query.Envelope {
				return q.AllPrices(ctx, rangeRequest(args))
			},
		},
		{
			name:        "get_lowest_ticket_price",
			description: "查询区间内最低价格机票",
			params:      rangeParams,
			exec: func(ctx context.Context, args Args) query.Envelope {
				return q.LowestPrice(ctx, rangeRequest(args))
			},
		},
		{
			name:        "get_round_trip_prices",
			description: "查询往返机票价格",
			params:      rangeParams,
			exec: func(ctx context.Context, args Args) query.Envelope {
				return q.RoundTrip(ctx, rangeRequest(args))
			},
		},
	}

	for _, d := range defs {
		if err := r.Register(d.name, d.description, d.params, d.exec); err != nil {
			return fmt.Errorf("registering fare tools: %w", err)
		}
	}
	return nil
}
