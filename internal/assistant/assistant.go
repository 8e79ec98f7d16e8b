// Package assistant assembles the full module set and the router from
// configuration, shared by every entry point.
package assistant

import (
	log "log/slog"
	"net/http"
	"regexp"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"verba/internal/command"
	"verba/internal/config"
	"verba/internal/router"
	"verba/internal/services"
)

// Assistant is a fully wired dispatcher.
type Assistant struct {
	Router   *router.Router
	Quit     *command.Quit
	Sleep    *command.Sleep
	Timer    *command.Timer
	Reminder *command.Reminder
	Music    *command.Music
}

// New builds the assistant. httpClient carries API traffic (possibly through
// a SOCKS proxy); nil means the default client. Missing credentials disable
// the corresponding backend, not the module.
func New(cfg config.Config, creds config.Credentials, httpClient *http.Client) *Assistant {
	r := router.New(cfg.DispatchLog)

	var grocery command.GroceryList
	if creds.GroceryUser != "" {
		grocery = services.NewOurGroceries(creds.GroceryUser, creds.GroceryPass, cfg.GroceryList)
	}

	var player command.Player
	if creds.SpotifyID != "" {
		player = services.NewSpotify(creds.SpotifyID, creds.SpotifySecret, creds.SpotifyRefresh)
	}

	var asker command.Asker
	if creds.OpenAIKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(creds.OpenAIKey)}
		if httpClient != nil {
			opts = append(opts, option.WithHTTPClient(httpClient))
		}
		asker = services.NewLLMAsker(openai.NewClient(opts...), cfg.AskModel)
	}

	teams := make([]command.Team, 0, len(cfg.Teams))
	for _, t := range cfg.Teams {
		aliases, err := regexp.Compile(t.AliasPattern)
		if err != nil {
			log.Warn("Bad team alias pattern, skipping", "team", t.Name, "err", err)
			continue
		}
		teams = append(teams, command.Team{
			Sport:         t.Sport,
			ID:            t.ID,
			Name:          t.Name,
			ShortName:     t.ShortName,
			SportKeywords: t.SportKeywords,
			Aliases:       aliases,
		})
	}

	symbols := map[string]string{}
	for name, sym := range command.DefaultSymbols {
		symbols[name] = sym
	}
	for name, sym := range cfg.Symbols {
		symbols[name] = sym
	}
	displayNames := map[string]string{}
	for sym, d := range command.DefaultDisplayNames {
		displayNames[sym] = d
	}
	for sym, d := range cfg.DisplayNames {
		displayNames[sym] = d
	}

	a := &Assistant{
		Router:   r,
		Quit:     command.NewQuit(),
		Sleep:    command.NewSleep(),
		Timer:    command.NewTimer(),
		Reminder: command.NewReminder(cfg.ReminderFile),
		Music:    command.NewMusic(player),
	}

	// Registration order breaks score ties: earlier wins.
	r.Register(a.Sleep)
	r.Register(command.NewGreeting())
	r.Register(a.Quit)
	r.Register(command.NewRepeat(r.LastResponse))
	r.Register(a.Timer)
	r.Register(command.NewWeather(services.NewOpenMeteo(httpClient, cfg.Location), cfg.Location.Name))
	r.Register(command.NewClock())
	r.Register(a.Reminder)
	r.Register(command.NewGrocery(grocery))
	r.Register(a.Music)
	r.Register(command.NewMath())
	r.Register(command.NewSports(services.NewESPN(httpClient), teams))
	r.Register(command.NewStock(services.NewYahooQuotes(httpClient), symbols, displayNames))
	r.Register(command.NewAsk(asker))

	return a
}

// SetAnnounce wires the background firers to the speak callback.
func (a *Assistant) SetAnnounce(fn func(string)) {
	a.Timer.SetAnnounce(fn)
	a.Reminder.SetAnnounce(fn)
}

// Start launches the timer and reminder checkers.
func (a *Assistant) Start() {
	a.Timer.StartChecker()
	a.Reminder.StartChecker()
}

// Dispatch routes one utterance.
func (a *Assistant) Dispatch(source, text string) router.Reply {
	return a.Router.Dispatch(source, text)
}
