// Package ticker fetches the latest 24 hour ticker of a trading pair from a Binance style REST
// API and turns it into a price row.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL           = "https://api.binance.com"
	DefaultRequestsPerMinute = 60
	DefaultTimeout           = 10 * time.Second

	ticker24hrPath = "/api/v3/ticker/24hr"
)

// DefaultSymbols maps coin names to their trading pairs
var DefaultSymbols = map[string]string{
	"BTC": "BTCUSDT",
	"ETH": "ETHUSDT",
	"SOL": "SOLUSDT",
}

var (
	ErrEmptySymbol = errors.New("empty symbol")
	ErrBadStatus   = errors.New("unexpected status code")
)

// Ticker24hr is the subset of the 24 hour rolling statistics the harness uses. The API encodes
// numbers as strings.
type Ticker24hr struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	OpenPrice          decimal.Decimal `json:"openPrice"`
	HighPrice          decimal.Decimal `json:"highPrice"`
	LowPrice           decimal.Decimal `json:"lowPrice"`
	Volume             decimal.Decimal `json:"volume"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
}

// Values returns the ticker in timedataset.PriceFields order
func (t *Ticker24hr) Values() []float64 {
	res := make([]float64, 0, len(timedataset.PriceFields))
	for _, d := range []decimal.Decimal{t.LastPrice, t.OpenPrice, t.HighPrice, t.LowPrice, t.Volume, t.PriceChangePercent} {
		v, _ := d.Float64()
		res = append(res, v)
	}
	return res
}

type Options struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

func NewDefaultOptions() *Options {
	return &Options{
		BaseURL:           DefaultBaseURL,
		RequestsPerMinute: DefaultRequestsPerMinute,
		Timeout:           DefaultTimeout,
	}
}

// Client makes single attempt, rate limited ticker requests
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	now func() time.Time
}

func NewClient(opt *Options) *Client {
	def := NewDefaultOptions()
	if opt == nil {
		opt = def
	}
	baseURL := strings.TrimSuffix(opt.BaseURL, "/")
	if baseURL == "" {
		baseURL = def.BaseURL
	}
	rpm := opt.RequestsPerMinute
	if rpm <= 0 {
		rpm = def.RequestsPerMinute
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = def.Timeout
	}
	burst := max(rpm/10, 1)

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		now:     time.Now,
	}
}

// Ticker fetches the 24 hour statistics of symbol
func (c *Client) Ticker(ctx context.Context, symbol string) (*Ticker24hr, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("unable to wait for rate limiter, %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ticker24hrPath, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request, %w", err)
	}
	q := req.URL.Query()
	q.Set("symbol", symbol)
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch ticker, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d %s, %w", resp.StatusCode, strings.TrimSpace(string(body)), ErrBadStatus)
	}

	var t Ticker24hr
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("unable to decode ticker, %w", err)
	}
	return &t, nil
}

// Row fetches symbol and stamps it with the fetch time
func (c *Client) Row(ctx context.Context, symbol string) (timedataset.Row, error) {
	t, err := c.Ticker(ctx, symbol)
	if err != nil {
		return timedataset.Row{}, err
	}
	return timedataset.Row{T: c.now(), Values: t.Values()}, nil
}

// Fetch returns a single row dataset per coin. Coins whose request fails are logged and left out.
func (c *Client) Fetch(ctx context.Context, symbols map[string]string) map[string]*timedataset.Dataset {
	coins := make([]string, 0, len(symbols))
	for coin := range symbols {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	res := make(map[string]*timedataset.Dataset, len(symbols))
	for _, coin := range coins {
		row, err := c.Row(ctx, symbols[coin])
		if err != nil {
			slog.Warn("skipping ticker", "coin", coin, "symbol", symbols[coin], "error", err)
			continue
		}
		d, err := timedataset.New(timedataset.PriceFields, []timedataset.Row{row})
		if err != nil {
			slog.Warn("skipping ticker", "coin", coin, "error", err)
			continue
		}
		res[coin] = d
	}
	return res
}
