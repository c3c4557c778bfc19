// Package weather evaluates lunch suitability from the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

// Config carries the evaluation thresholds.
type Config struct {
	MinTemperatureC int
	GoodConditions  []string
	BadConditions   []string
	CheckHour       int    // local hour of day whose forecast is judged
	Timezone        string // IANA zone passed to the forecast API
}

// OpenMeteoClient fetches today's hourly forecast and produces the verdict
// for the configured check hour.
type OpenMeteoClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	cfg        Config
}

func NewOpenMeteoClient(logger *slog.Logger, baseURL string, cfg Config, httpClient *http.Client) *OpenMeteoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenMeteoClient{
		logger:     logger.With("provider", "open-meteo"),
		httpClient: httpClient,
		baseURL:    baseURL,
		cfg:        cfg,
	}
}

type forecastResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature2M []float64 `json:"temperature_2m"`
		WeatherCode   []int     `json:"weathercode"`
	} `json:"hourly"`
}

// IsWeatherGood returns the verdict for the check hour today at coords.
func (c *OpenMeteoClient) IsWeatherGood(ctx context.Context, coords domain.Coordinates) (*domain.WeatherVerdict, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", coords.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", coords.Longitude))
	q.Set("hourly", "temperature_2m,weathercode")
	q.Set("timezone", c.cfg.Timezone)
	q.Set("forecast_days", "1")
	reqURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create forecast request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast API returned status %d: %s", resp.StatusCode, string(body))
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, fmt.Errorf("failed to parse forecast response: %w", err)
	}

	idx, observedAt, err := c.findCheckHour(forecast.Hourly.Time)
	if err != nil {
		return nil, err
	}
	if idx >= len(forecast.Hourly.Temperature2M) || idx >= len(forecast.Hourly.WeatherCode) {
		return nil, fmt.Errorf("forecast response missing data for hour index %d", idx)
	}

	temperature := int(math.Round(forecast.Hourly.Temperature2M[idx]))
	condition, description := conditionFromWMOCode(forecast.Hourly.WeatherCode[idx])

	verdict := &domain.WeatherVerdict{
		IsGood:      ClassifyVerdict(temperature, condition, c.cfg.MinTemperatureC, c.cfg.GoodConditions, c.cfg.BadConditions),
		Temperature: temperature,
		Condition:   condition,
		Description: description,
		ObservedAt:  observedAt,
	}

	c.logger.InfoContext(ctx, "Weather evaluated",
		"temperature", verdict.Temperature, "condition", verdict.Condition, "is_good", verdict.IsGood)
	return verdict, nil
}

// findCheckHour locates the hourly slot matching the configured check hour.
// Open-Meteo serves local times as "2006-01-02T15:04".
func (c *OpenMeteoClient) findCheckHour(times []string) (int, time.Time, error) {
	for i, ts := range times {
		parsed, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		if parsed.Hour() == c.cfg.CheckHour {
			return i, parsed, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("forecast response has no slot for hour %d", c.cfg.CheckHour)
}
