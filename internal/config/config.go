// Package config loads the assistant configuration: a YAML file for
// location, teams, and symbols, plus environment variables for credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Location is where weather queries resolve to.
type Location struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

// Team is one followed sports team.
type Team struct {
	Sport         string   `yaml:"sport"`
	ID            int      `yaml:"id"`
	Name          string   `yaml:"name"`
	ShortName     string   `yaml:"short_name"`
	SportKeywords []string `yaml:"sport_keywords"`
	AliasPattern  string   `yaml:"alias_pattern"`
}

// Config is the full assistant configuration.
type Config struct {
	Location Location `yaml:"location"`
	Teams    []Team   `yaml:"teams"`

	// Symbols maps spoken stock names to tickers; merged over the
	// built-in table.
	Symbols      map[string]string `yaml:"symbols"`
	DisplayNames map[string]string `yaml:"display_names"`

	GroceryList string `yaml:"grocery_list"`

	ReminderFile string `yaml:"reminder_file"`
	DispatchLog  string `yaml:"dispatch_log"`

	AskModel string `yaml:"ask_model"`
}

// Credentials come from the environment, never the YAML file.
type Credentials struct {
	OpenAIKey      string
	GroceryUser    string
	GroceryPass    string
	SpotifyID      string
	SpotifySecret  string
	SpotifyRefresh string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Location: Location{
			Name:      "Tucson",
			Latitude:  32.22174,
			Longitude: -110.92648,
			Timezone:  "America/Phoenix",
		},
		Teams: []Team{{
			Sport:         "basketball/mens-college-basketball",
			ID:            12,
			Name:          "Arizona Wildcats men's basketball",
			ShortName:     "Arizona basketball",
			SportKeywords: []string{"basketball"},
			AliasPattern:  `(?i)\b(?:u\s*of\s*a|arizona|wildcats|cats)\b`,
		}},
		GroceryList:  "Shopping",
		ReminderFile: "data/reminders.json",
		DispatchLog:  "data/dispatch.jsonl",
		AskModel:     "gpt-4o-mini",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Env reads credentials from the environment. Call godotenv.Load first.
func Env() Credentials {
	return Credentials{
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		GroceryUser:    os.Getenv("GROCERY_USERNAME"),
		GroceryPass:    os.Getenv("GROCERY_PASSWORD"),
		SpotifyID:      os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifySecret:  os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRefresh: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
	}
}
