package command

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// WeatherReport is current conditions plus a three-day daily forecast.
type WeatherReport struct {
	Temperature float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64
	Code        int
	Daily       []DailyForecast
}

// DailyForecast is one day of the forecast.
type DailyForecast struct {
	High         float64
	Low          float64
	Code         int
	PrecipChance int
}

// WeatherSource fetches conditions for a fixed location. Implementations
// live in internal/services.
type WeatherSource interface {
	Forecast(ctx context.Context) (WeatherReport, error)
}

// Weather reports current conditions, the multi-day forecast, and rain
// likelihood.
type Weather struct {
	source   WeatherSource
	location string
	timeout  time.Duration
}

func NewWeather(source WeatherSource, location string) *Weather {
	return &Weather{
		source:   source,
		location: location,
		timeout:  10 * time.Second,
	}
}

func (m *Weather) Name() string { return "weather" }

// WMO weather interpretation codes.
var wmoCodes = map[int]string{
	0:  "clear skies",
	1:  "mostly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "foggy",
	48: "foggy with frost",
	51: "light drizzle",
	53: "drizzle",
	55: "heavy drizzle",
	61: "light rain",
	63: "rain",
	65: "heavy rain",
	71: "light snow",
	73: "snow",
	75: "heavy snow",
	77: "snow grains",
	80: "light rain showers",
	81: "rain showers",
	82: "heavy rain showers",
	85: "light snow showers",
	86: "heavy snow showers",
	95: "thunderstorms",
	96: "thunderstorms with hail",
	99: "thunderstorms with heavy hail",
}

func describeWeatherCode(code int) string {
	if desc, ok := wmoCodes[code]; ok {
		return desc
	}
	return "unknown conditions"
}

// --- Classification ---

var (
	forecastWordsRe = regexp.MustCompile(`(?i)\b(tomorrow|forecast|next few days|later this week)\b`)
	rainWordsRe     = regexp.MustCompile(`(?i)\b(rain|snow|precipitation|umbrella|storm)\b`)
	currentWordsRe  = regexp.MustCompile(`(?i)\b(weather|temperature|temp|outside|how hot|how cold|how warm)\b`)
)

func (m *Weather) Parse(text string) *Result {
	switch {
	case forecastWordsRe.MatchString(text):
		return &Result{Command: "forecast", Score: 0.9}
	case rainWordsRe.MatchString(text):
		return &Result{Command: "rain_check", Score: 0.9}
	case currentWordsRe.MatchString(text):
		return &Result{Command: "current_weather", Score: 0.9}
	}
	return nil
}

// --- Handling ---

func roundDeg(f float64) int { return int(math.Round(f)) }

func (m *Weather) Handle(r *Result) string {
	if m.source == nil {
		return "Sorry, I couldn't get the weather."
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	report, err := m.source.Forecast(ctx)
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't get the weather. %v", err)
	}

	temp := roundDeg(report.Temperature)
	conditions := describeWeatherCode(report.Code)

	switch r.Command {
	case "current_weather":
		if len(report.Daily) == 0 {
			break
		}
		var b strings.Builder
		fmt.Fprintf(&b, "It's currently %d degrees in %s with %s. ",
			temp, m.location, conditions)
		fmt.Fprintf(&b, "Feels like %d. ", roundDeg(report.FeelsLike))
		if wind := roundDeg(report.WindSpeed); wind > 5 {
			fmt.Fprintf(&b, "Wind at %d miles per hour. ", wind)
		}
		today := report.Daily[0]
		fmt.Fprintf(&b, "Today's high is %d, low %d.",
			roundDeg(today.High), roundDeg(today.Low))
		return b.String()

	case "forecast":
		dayNames := []string{"Today", "Tomorrow", "The day after"}
		var parts []string
		for i, day := range report.Daily {
			if i >= len(dayNames) {
				break
			}
			part := fmt.Sprintf("%s: %s, high of %d, low of %d",
				dayNames[i], describeWeatherCode(day.Code),
				roundDeg(day.High), roundDeg(day.Low))
			if day.PrecipChance > 20 {
				part += fmt.Sprintf(", %d percent chance of precipitation", day.PrecipChance)
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			break
		}
		return strings.Join(parts, ". ") + "."

	case "rain_check":
		if len(report.Daily) < 2 {
			break
		}
		today := report.Daily[0].PrecipChance
		tomorrow := report.Daily[1].PrecipChance
		var b strings.Builder
		switch {
		case today > 50:
			fmt.Fprintf(&b, "Yes, there's a %d percent chance of rain today. ", today)
		case today > 20:
			fmt.Fprintf(&b, "Maybe. There's a %d percent chance of rain today. ", today)
		default:
			fmt.Fprintf(&b, "It doesn't look like it. Only a %d percent chance today. ", today)
		}
		if tomorrow > 30 {
			fmt.Fprintf(&b, "Tomorrow has a %d percent chance.", tomorrow)
		}
		return b.String()
	}

	return fmt.Sprintf("It's currently %d degrees with %s.", temp, conditions)
}
