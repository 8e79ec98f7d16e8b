package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Playlist is one entry in the user's playlist library.
type Playlist struct {
	Name string
	ID   string
}

// Track is a playable track.
type Track struct {
	Title   string
	Artists []string
	URI     string
}

// Playback is the current player state.
type Playback struct {
	Track   Track
	Playing bool
	Active  bool
}

// Player is the external playback backend. Implementations live in
// internal/services.
type Player interface {
	Playlists(ctx context.Context) ([]Playlist, error)
	PlayLiked(ctx context.Context) (int, error)
	PlayPlaylist(ctx context.Context, id string) error
	FindTrack(ctx context.Context, title, artist string) (Track, bool, error)
	PlayTrack(ctx context.Context, uri string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Skip(ctx context.Context) error
	NowPlaying(ctx context.Context) (Playback, error)
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, percent int) error
}

// Music controls playback: pause/resume/stop/skip, now-playing, and the
// ordered play fallbacks (generic music, named playlist, specific track).
type Music struct {
	player Player

	mu          sync.Mutex
	playlists   []Playlist
	fetchedAt   time.Time
	savedVolume int
	hasSaved    bool

	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewMusic(player Player) *Music {
	return &Music{
		player:  player,
		ttl:     10 * time.Minute,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

func (m *Music) Name() string { return "music" }

// --- Volume ducking ---

// DuckVolume lowers the player volume while the assistant listens or speaks,
// remembering the level for RestoreVolume. Failures are ignored; ducking is
// cosmetic.
func (m *Music) DuckVolume(level int) {
	if m.player == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	vol, err := m.player.Volume(ctx)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.savedVolume = vol
	m.hasSaved = true
	m.mu.Unlock()
	_ = m.player.SetVolume(ctx, level)
}

// RestoreVolume restores the level saved by DuckVolume.
func (m *Music) RestoreVolume() {
	m.mu.Lock()
	saved, ok := m.savedVolume, m.hasSaved
	m.hasSaved = false
	m.mu.Unlock()
	if !ok || m.player == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	_ = m.player.SetVolume(ctx, saved)
}

// --- Classification ---

var (
	musicPauseRe   = regexp.MustCompile(`(?i)\b(pause|hold)\b.*\b(music|song|spotify|playback)\b|\b(pause|hold)\b\s*(the\s+)?(music|song)`)
	musicResumeRe  = regexp.MustCompile(`(?i)\b(resume|unpause|continue)\b.*\b(music|song|spotify|playback)\b|\b(resume|unpause|continue)\b\s*(the\s+)?(music|song)`)
	musicStopRe    = regexp.MustCompile(`(?i)\b(stop)\b.*\b(music|song|spotify|playback)\b|\bstop\b\s*(the\s+)?(music|song)`)
	musicSkipRe    = regexp.MustCompile(`(?i)\b(skip|next)\b.*\b(song|track)\b`)
	musicNowRe     = regexp.MustCompile(`(?i)\bwhat(?:'s|\s+is)\s+playing\b|\bwhat\s+song\s+is\s+this\b`)
	musicGenericRe = regexp.MustCompile(`(?i)\b(play|have|hear|put on|throw on|turn on|start|how about|i want|i'd like)\s+(?:some|the)?\s*music\b`)
	musicLetsRe    = regexp.MustCompile(`(?i)\blet(?:'s|s| us)\s+(?:play|have|hear|listen to|get)\s+(?:some\s+)?music\b`)
	musicPleaseRe  = regexp.MustCompile(`(?i)\bmusic\s*,?\s*please\b`)
	musicPlayRe    = regexp.MustCompile(`(?i)^(?:.*?\b)?play\s+(.*)`)
	musicBareRe    = regexp.MustCompile(`(?i)^(?:some\s+)?music$`)
	playlistMyRe   = regexp.MustCompile(`(?i)^(?:my|the)\s+(.+?)\s+playlist$`)
	playlistRe     = regexp.MustCompile(`(?i)^(.+?)\s+playlist$`)
	trackByRe      = regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`)
	musicTopicRe   = regexp.MustCompile(`(?i)\b(music|spotify|song|playlist)\b`)
)

func in(t string, options ...string) bool {
	for _, o := range options {
		if t == o {
			return true
		}
	}
	return false
}

func classifyMusic(text string) *Result {
	t := strings.TrimSpace(text)
	lower := strings.ToLower(strings.TrimRight(t, "."))

	switch {
	case musicPauseRe.MatchString(t) || in(lower, "pause", "pause music", "pause the music"):
		return &Result{Command: "pause", Score: 0.9}
	case musicResumeRe.MatchString(t) || in(lower, "resume", "resume music", "unpause", "resume the music"):
		return &Result{Command: "resume", Score: 0.9}
	case musicStopRe.MatchString(t):
		return &Result{Command: "stop", Score: 0.9}
	case musicSkipRe.MatchString(t) || in(lower, "skip", "next", "next song", "skip song"):
		return &Result{Command: "skip", Score: 0.9}
	case musicNowRe.MatchString(t):
		return &Result{Command: "now_playing", Score: 0.9}
	case musicGenericRe.MatchString(t) || musicLetsRe.MatchString(t) || musicPleaseRe.MatchString(t):
		return &Result{Command: "play_music", Score: 0.9}
	}

	m := musicPlayRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	rest := strings.TrimRight(strings.TrimSpace(m[1]), ".")

	if musicBareRe.MatchString(rest) {
		return &Result{Command: "play_music", Score: 0.9}
	}
	if pm := playlistMyRe.FindStringSubmatch(rest); pm != nil {
		return &Result{Command: "play_playlist", Score: 0.9,
			Args: Args{"name": strings.TrimSpace(pm[1])}}
	}
	if pm := playlistRe.FindStringSubmatch(rest); pm != nil {
		return &Result{Command: "play_playlist", Score: 0.9,
			Args: Args{"name": strings.TrimSpace(pm[1])}}
	}
	if pm := trackByRe.FindStringSubmatch(rest); pm != nil {
		return &Result{Command: "play_track", Score: 0.9,
			Args: Args{"title": strings.TrimSpace(pm[1]), "artist": strings.TrimSpace(pm[2])}}
	}
	if rest != "" {
		return &Result{Command: "play_track", Score: 0.9, Args: Args{"title": rest}}
	}
	return nil
}

func (m *Music) Parse(text string) *Result {
	if r := classifyMusic(text); r != nil {
		return r
	}
	if musicTopicRe.MatchString(text) {
		return &Result{Command: "play_music", Score: 0.4, Args: Args{}}
	}
	return nil
}

// --- Playlist resolution ---

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

func normalizeName(s string) string {
	return strings.TrimSpace(nonWordRe.ReplaceAllString(strings.ToLower(s), ""))
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(normalizeName(s)) {
		set[w] = true
	}
	return set
}

func isSubset(a, b map[string]bool) bool {
	for w := range a {
		if !b[w] {
			return false
		}
	}
	return true
}

func (m *Music) cachedPlaylists(ctx context.Context) ([]Playlist, error) {
	m.mu.Lock()
	if m.playlists != nil && m.now().Sub(m.fetchedAt) < m.ttl {
		lists := m.playlists
		m.mu.Unlock()
		return lists, nil
	}
	m.mu.Unlock()

	lists, err := m.player.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.playlists = lists
	m.fetchedAt = m.now()
	m.mu.Unlock()
	return lists, nil
}

// findPlaylist resolves a spoken playlist name against the library. Tiers:
// exact normalized match, substring containment either direction, then
// word-overlap scoring with a minimum quality threshold.
func (m *Music) findPlaylist(ctx context.Context, name string) (Playlist, bool, error) {
	playlists, err := m.cachedPlaylists(ctx)
	if err != nil {
		return Playlist{}, false, err
	}

	queryNorm := normalizeName(name)
	queryWords := wordSet(name)

	for _, p := range playlists {
		if normalizeName(p.Name) == queryNorm {
			return p, true, nil
		}
	}
	for _, p := range playlists {
		pn := normalizeName(p.Name)
		if strings.Contains(pn, queryNorm) || strings.Contains(queryNorm, pn) {
			return p, true, nil
		}
	}

	var best Playlist
	bestScore := 0.0
	for _, p := range playlists {
		pw := wordSet(p.Name)
		if len(pw) == 0 || len(queryWords) == 0 {
			continue
		}
		overlap := 0
		for w := range queryWords {
			if pw[w] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		var score float64
		switch {
		case isSubset(queryWords, pw):
			// Prefer tighter matches among supersets.
			score = 0.9 + float64(overlap)/float64(len(pw)+10)
		case isSubset(pw, queryWords):
			score = 0.8 + float64(overlap)/float64(len(queryWords)+10)
		default:
			score = float64(overlap) / float64(max(len(queryWords), len(pw)))
		}
		if score > bestScore {
			bestScore = score
			best = p
		}
	}

	if bestScore >= 0.6 {
		return best, true, nil
	}
	return Playlist{}, false, nil
}

var likedNames = map[string]bool{
	"liked songs":    true,
	"liked":          true,
	"favorites":      true,
	"my liked songs": true,
	"my favorites":   true,
}

// --- Handling ---

func (m *Music) Handle(r *Result) string {
	if m.player == nil {
		return "Sorry, music isn't set up."
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	resp, err := m.run(ctx, r)
	if err != nil {
		return fmt.Sprintf("Sorry, I had trouble with the music player: %v", err)
	}
	return resp
}

func (m *Music) run(ctx context.Context, r *Result) (string, error) {
	switch r.Command {
	case "pause":
		if err := m.player.Pause(ctx); err != nil {
			return "", err
		}
		return "Music paused.", nil

	case "resume":
		if err := m.player.Resume(ctx); err != nil {
			return "", err
		}
		return "Resuming music.", nil

	case "stop":
		if err := m.player.Stop(ctx); err != nil {
			return "", err
		}
		return "Music stopped.", nil

	case "skip":
		if err := m.player.Skip(ctx); err != nil {
			return "", err
		}
		return "Skipping to the next song.", nil

	case "now_playing":
		pb, err := m.player.NowPlaying(ctx)
		if err != nil {
			return "", err
		}
		if !pb.Active {
			return "Nothing is playing right now.", nil
		}
		state := "paused"
		if pb.Playing {
			state = "playing"
		}
		return fmt.Sprintf("Currently %s: %s by %s.",
			state, pb.Track.Title, strings.Join(pb.Track.Artists, ", ")), nil

	case "play_music":
		count, err := m.player.PlayLiked(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Playing your liked songs. %d tracks shuffled.", count), nil

	case "play_playlist":
		name := r.Args.Str("name")
		// "liked songs" is special; it is not a real playlist.
		if likedNames[normalizeName(name)] {
			count, err := m.player.PlayLiked(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Playing your liked songs. %d tracks shuffled.", count), nil
		}
		match, ok, err := m.findPlaylist(ctx, name)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("I couldn't find a playlist called %s.", name), nil
		}
		if err := m.player.PlayPlaylist(ctx, match.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Playing your %s playlist.", match.Name), nil

	case "play_track":
		title := r.Args.Str("title")
		artist := r.Args.Str("artist")
		track, found, err := m.player.FindTrack(ctx, title, artist)
		if err != nil {
			return "", err
		}
		if !found {
			msg := fmt.Sprintf("I couldn't find a song called %s.", title)
			if artist != "" {
				msg += fmt.Sprintf(" by %s", artist)
			}
			return msg, nil
		}
		if err := m.player.PlayTrack(ctx, track.URI); err != nil {
			return "", err
		}
		return fmt.Sprintf("Playing %s by %s.",
			track.Title, strings.Join(track.Artists, ", ")), nil
	}

	return "Sorry, I didn't understand that music command.", nil
}
