// Package services holds the thin HTTP clients behind the command
// interfaces: weather, schedules, quotes, the grocery list, the music
// player, and the LLM fallback.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"verba/internal/command"
	"verba/internal/config"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteo fetches current conditions and a three-day forecast for a fixed
// location. No API key required.
type OpenMeteo struct {
	client  *http.Client
	baseURL string
	loc     config.Location
}

func NewOpenMeteo(client *http.Client, loc config.Location) *OpenMeteo {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenMeteo{client: client, baseURL: openMeteoURL, loc: loc}
}

type openMeteoResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    int     `json:"relative_humidity_2m"`
		FeelsLike   float64 `json:"apparent_temperature"`
		Code        int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		Code         []int     `json:"weather_code"`
		High         []float64 `json:"temperature_2m_max"`
		Low          []float64 `json:"temperature_2m_min"`
		PrecipChance []int     `json:"precipitation_probability_max"`
	} `json:"daily"`
}

func (s *OpenMeteo) Forecast(ctx context.Context) (command.WeatherReport, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.5f", s.loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.5f", s.loc.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("timezone", s.loc.Timezone)
	q.Set("forecast_days", "3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return command.WeatherReport{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return command.WeatherReport{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return command.WeatherReport{}, fmt.Errorf("weather API status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return command.WeatherReport{}, fmt.Errorf("decode weather: %w", err)
	}

	report := command.WeatherReport{
		Temperature: body.Current.Temperature,
		FeelsLike:   body.Current.FeelsLike,
		Humidity:    body.Current.Humidity,
		WindSpeed:   body.Current.WindSpeed,
		Code:        body.Current.Code,
	}
	for i := range body.Daily.High {
		day := command.DailyForecast{High: body.Daily.High[i]}
		if i < len(body.Daily.Low) {
			day.Low = body.Daily.Low[i]
		}
		if i < len(body.Daily.Code) {
			day.Code = body.Daily.Code[i]
		}
		if i < len(body.Daily.PrecipChance) {
			day.PrecipChance = body.Daily.PrecipChance[i]
		}
		report.Daily = append(report.Daily, day)
	}
	return report, nil
}
