package fare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/neexbeast/airfare/internal/dates"
	"github.com/neexbeast/airfare/internal/metrics"
)

// DefaultBaseURL is the Ctrip lowest-price calendar endpoint.
const DefaultBaseURL = "https://flights.ctrip.com/itinerary/api/12808/lowestPrice"

const defaultTimeout = 10 * time.Second

// pricePath locates the date → price object inside the fare source body.
const pricePath = "data.oneWayPrice"

// ErrUnexpectedShape is returned when the response body does not carry the
// expected one-way price object.
var ErrUnexpectedShape = errors.New("unexpected fare response shape")

// StatusError reports a non-200 response from the fare source.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("获取数据失败，状态码: %d", e.Code)
}

// Client fetches one-way, direct, non-military fares for a directed city pair.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client against the production endpoint.
func NewClient() *Client {
	return NewClientWithURL(DefaultBaseURL, defaultTimeout)
}

// NewClientWithURL constructs a Client pointing at a custom base URL.
// A non-positive timeout falls back to the default.
func NewClientWithURL(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (c *Client) endpoint(origin, destination string) string {
	q := url.Values{}
	q.Set("flightWay", "Oneway")
	q.Set("dcity", origin)
	q.Set("acity", destination)
	q.Set("direct", "true")
	q.Set("army", "false")
	return c.baseURL + "?" + q.Encode()
}

// Fetch issues a single GET for origin → destination and returns the price
// calendar in response order. A present but empty calendar yields an empty
// map; a missing or malformed one yields ErrUnexpectedShape.
func (c *Client) Fetch(ctx context.Context, origin, destination string) (PriceMap, error) {
	start := time.Now()
	prices, err := c.fetch(ctx, origin, destination)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, origin, destination string) (PriceMap, error) {
	rawURL := c.endpoint(origin, destination)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s-%s: %w", origin, destination, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET fares %s-%s: %w", origin, destination, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fares %s-%s: %w", origin, destination, err)
	}

	return ParsePrices(body)
}

// ParsePrices extracts data.oneWayPrice[0] from a fare source body.
func ParsePrices(body []byte) (PriceMap, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrUnexpectedShape)
	}

	list := gjson.GetBytes(body, pricePath)
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %s is missing or not a list", ErrUnexpectedShape, pricePath)
	}

	items := list.Array()
	if len(items) == 0 {
		return PriceMap{}, nil
	}
	calendar := items[0]
	if !calendar.IsObject() {
		return nil, fmt.Errorf("%w: %s[0] is not an object", ErrUnexpectedShape, pricePath)
	}

	var (
		prices  PriceMap
		seen    = make(map[string]int)
		iterErr error
	)
	calendar.ForEach(func(key, value gjson.Result) bool {
		date := key.String()
		if err := dates.Validate(date); err != nil {
			iterErr = fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
			return false
		}
		if value.Type != gjson.Number || value.Num != float64(int(value.Num)) || value.Num < 0 {
			iterErr = fmt.Errorf("%w: price for %s is %s", ErrUnexpectedShape, date, value.Raw)
			return false
		}
		p := Price{Date: date, Value: int(value.Num)}
		if i, ok := seen[date]; ok {
			prices[i] = p
			return true
		}
		seen[date] = len(prices)
		prices = append(prices, p)
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}
	if prices == nil {
		prices = PriceMap{}
	}
	return prices, nil
}
