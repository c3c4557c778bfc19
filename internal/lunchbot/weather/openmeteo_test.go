package weather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

func testConfig() Config {
	return Config{
		MinTemperatureC: 14,
		GoodConditions:  []string{ConditionClear, ConditionClouds},
		BadConditions:   []string{ConditionRain, ConditionDrizzle, ConditionThunderstorm, ConditionSnow},
		CheckHour:       12,
		Timezone:        "Europe/Berlin",
	}
}

func TestClassifyVerdict(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		name        string
		temperature int
		condition   string
		want        bool
	}{
		{"warm and clear", 22, ConditionClear, true},
		{"warm and cloudy", 18, ConditionClouds, true},
		{"warm but raining", 22, ConditionRain, false},
		{"clear but at the minimum", 14, ConditionClear, false}, // strictly greater than
		{"clear but cold", 5, ConditionClear, false},
		{"warm but unknown condition", 25, ConditionUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyVerdict(tc.temperature, tc.condition, cfg.MinTemperatureC, cfg.GoodConditions, cfg.BadConditions)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyVerdict_BadSetOverridesGoodSet(t *testing.T) {
	// A condition listed in both sets must be treated as bad.
	good := []string{ConditionClear, ConditionClouds}
	bad := []string{ConditionClear, ConditionRain}
	assert.False(t, ClassifyVerdict(22, ConditionClear, 14, good, bad))
	assert.True(t, ClassifyVerdict(22, ConditionClouds, 14, good, bad))
}

func TestOpenMeteoClient_IsWeatherGood(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "48.1351", r.URL.Query().Get("latitude"))
		assert.Equal(t, "temperature_2m,weathercode", r.URL.Query().Get("hourly"))
		assert.Equal(t, "Europe/Berlin", r.URL.Query().Get("timezone"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hourly": {
				"time": ["2024-07-10T10:00", "2024-07-10T11:00", "2024-07-10T12:00", "2024-07-10T13:00"],
				"temperature_2m": [17.2, 19.8, 21.6, 22.4],
				"weathercode": [2, 2, 0, 0]
			}
		}`))
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewOpenMeteoClient(logger, server.URL, testConfig(), server.Client())

	verdict, err := client.IsWeatherGood(context.Background(), domain.Coordinates{Latitude: 48.1351, Longitude: 11.5820})
	require.NoError(t, err)
	assert.True(t, verdict.IsGood)
	assert.Equal(t, 22, verdict.Temperature, "12:00 slot, rounded")
	assert.Equal(t, ConditionClear, verdict.Condition)
	assert.Equal(t, "clear sky", verdict.Description)
	assert.Equal(t, 12, verdict.ObservedAt.Hour())
}

func TestOpenMeteoClient_IsWeatherGood_BadWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hourly": {
				"time": ["2024-07-10T12:00"],
				"temperature_2m": [5.4],
				"weathercode": [63]
			}
		}`))
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewOpenMeteoClient(logger, server.URL, testConfig(), server.Client())

	verdict, err := client.IsWeatherGood(context.Background(), domain.Coordinates{})
	require.NoError(t, err)
	assert.False(t, verdict.IsGood)
	assert.Equal(t, 5, verdict.Temperature)
	assert.Equal(t, ConditionRain, verdict.Condition)
}

func TestOpenMeteoClient_IsWeatherGood_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewOpenMeteoClient(logger, server.URL, testConfig(), server.Client())

	_, err := client.IsWeatherGood(context.Background(), domain.Coordinates{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestOpenMeteoClient_IsWeatherGood_MissingCheckHour(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {"time": ["2024-07-10T08:00"], "temperature_2m": [12.0], "weathercode": [0]}}`))
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewOpenMeteoClient(logger, server.URL, testConfig(), server.Client())

	_, err := client.IsWeatherGood(context.Background(), domain.Coordinates{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no slot for hour 12")
}

func TestConditionFromWMOCode(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, ConditionClear},
		{2, ConditionClouds},
		{45, ConditionFog},
		{53, ConditionDrizzle},
		{61, ConditionRain},
		{81, ConditionRain},
		{71, ConditionSnow},
		{86, ConditionSnow},
		{95, ConditionThunderstorm},
		{42, ConditionUnknown},
	}
	for _, tc := range cases {
		got, _ := conditionFromWMOCode(tc.code)
		assert.Equal(t, tc.want, got, "code %d", tc.code)
	}
}
