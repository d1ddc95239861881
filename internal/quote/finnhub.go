package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
	"stock-sentinel/pkg/utils"
)

const (
	finnhubBaseURL = "https://finnhub.io/api/v1"

	// candleLookbackDays bounds the daily candle request used to derive
	// current and average volume.
	candleLookbackDays = 30
)

// FinnhubProvider fetches snapshots from the Finnhub REST API.
type FinnhubProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewFinnhubProvider creates a provider using the given API key.
func NewFinnhubProvider(apiKey string, logger zerolog.Logger) *FinnhubProvider {
	return &FinnhubProvider{
		apiKey:  apiKey,
		baseURL: finnhubBaseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry:  utils.DefaultRetryConfig(),
		logger: logger.With().Str("component", "finnhub").Logger(),
	}
}

// SetBaseURL overrides the API base URL. Used in tests.
func (p *FinnhubProvider) SetBaseURL(base string) {
	p.baseURL = base
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type candleResponse struct {
	Status  string  `json:"s"`
	Volumes []int64 `json:"v"`
}

// Fetch returns a fresh snapshot for subject. Price fields come from the
// quote endpoint; volume and average volume are derived from daily candles.
func (p *FinnhubProvider) Fetch(ctx context.Context, subject models.Subject) (models.Snapshot, error) {
	start := time.Now()

	q, err := utils.RetryWithResult(ctx, p.retry, func() (quoteResponse, error) {
		return p.fetchQuote(ctx, subject)
	})
	if err != nil {
		return models.Snapshot{}, err
	}

	// An all-zero quote is Finnhub's "unknown symbol" answer.
	if q.Current == 0 && q.PreviousClose == 0 && q.Timestamp == 0 {
		return models.Snapshot{}, errors.NewFetchError("finnhub", subject.String(), errors.ErrNotFound)
	}

	snap := models.Snapshot{
		Subject:       subject,
		Price:         q.Current,
		PreviousClose: q.PreviousClose,
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		AsOf:          time.Unix(q.Timestamp, 0),
	}

	// Candle failures degrade the snapshot rather than failing the fetch:
	// volume-based rules simply see zero averages and never fire.
	if volume, avg, cerr := p.fetchVolumes(ctx, subject); cerr == nil {
		snap.Volume = volume
		snap.AvgVolume = avg
	} else {
		p.logger.Debug().Err(cerr).Str("subject", subject.String()).Msg("Candle fetch failed, volume unavailable")
	}

	p.logger.Debug().
		Str("subject", subject.String()).
		Float64("price", snap.Price).
		Dur("duration", time.Since(start)).
		Msg("Snapshot fetched")

	return snap, nil
}

func (p *FinnhubProvider) fetchQuote(ctx context.Context, subject models.Subject) (quoteResponse, error) {
	var q quoteResponse

	params := url.Values{}
	params.Set("symbol", subject.String())

	body, err := p.get(ctx, "/quote", params)
	if err != nil {
		return q, errors.NewFetchError("finnhub", subject.String(), err)
	}

	if err := json.Unmarshal(body, &q); err != nil {
		return q, errors.NewFetchError("finnhub", subject.String(), fmt.Errorf("decoding quote: %w", err))
	}
	return q, nil
}

func (p *FinnhubProvider) fetchVolumes(ctx context.Context, subject models.Subject) (int64, float64, error) {
	now := time.Now()
	params := url.Values{}
	params.Set("symbol", subject.String())
	params.Set("resolution", "D")
	params.Set("from", strconv.FormatInt(now.AddDate(0, 0, -candleLookbackDays).Unix(), 10))
	params.Set("to", strconv.FormatInt(now.Unix(), 10))

	body, err := p.get(ctx, "/stock/candle", params)
	if err != nil {
		return 0, 0, err
	}

	var c candleResponse
	if err := json.Unmarshal(body, &c); err != nil {
		return 0, 0, fmt.Errorf("decoding candles: %w", err)
	}
	if c.Status != "ok" || len(c.Volumes) == 0 {
		return 0, 0, fmt.Errorf("no candle data for %s", subject)
	}

	current := c.Volumes[len(c.Volumes)-1]

	prior := c.Volumes[:len(c.Volumes)-1]
	if len(prior) == 0 {
		return current, 0, nil
	}
	var sum int64
	for _, v := range prior {
		sum += v
	}
	return current, float64(sum) / float64(len(prior)), nil
}

type newsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// RecentHeadlines returns company news headlines from the last two days,
// most recent first. Feeds the sentiment scorers.
func (p *FinnhubProvider) RecentHeadlines(ctx context.Context, subject models.Subject) ([]string, error) {
	now := time.Now()
	params := url.Values{}
	params.Set("symbol", subject.String())
	params.Set("from", now.AddDate(0, 0, -2).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))

	body, err := p.get(ctx, "/company-news", params)
	if err != nil {
		return nil, errors.NewFetchError("finnhub", subject.String(), err)
	}

	var items []newsItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.NewFetchError("finnhub", subject.String(), fmt.Errorf("decoding news: %w", err))
	}

	headlines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Headline != "" {
			headlines = append(headlines, item.Headline)
		}
	}
	return headlines, nil
}

func (p *FinnhubProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("token", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		return nil, errors.NewRateLimitError("finnhub", time.Minute)
	case http.StatusNotFound:
		return nil, errors.ErrNotFound
	default:
		return nil, fmt.Errorf("finnhub returned status %d: %s", resp.StatusCode, string(body))
	}
}
