package services

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"verba/internal/command"
)

const (
	spotifyAPIURL   = "https://api.spotify.com/v1"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Spotify drives playback on the user's active Spotify device. Access
// tokens are refreshed on demand from the stored refresh token.
type Spotify struct {
	client       *http.Client
	apiURL       string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	mu          sync.Mutex
	accessToken string
	expires     time.Time

	now func() time.Time
}

func NewSpotify(clientID, clientSecret, refreshToken string) *Spotify {
	return &Spotify{
		client:       &http.Client{},
		apiURL:       spotifyAPIURL,
		tokenURL:     spotifyTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		now:          time.Now,
	}
}

// token returns a valid access token, refreshing when within a minute of
// expiry.
func (s *Spotify) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken != "" && s.now().Before(s.expires.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh status %d", resp.StatusCode)
	}

	s.accessToken = gjson.GetBytes(body, "access_token").String()
	if s.accessToken == "" {
		return "", fmt.Errorf("no access token in refresh response")
	}
	ttl := gjson.GetBytes(body, "expires_in").Int()
	s.expires = s.now().Add(time.Duration(ttl) * time.Second)
	return s.accessToken, nil
}

// call makes one authenticated API request and returns the body. A 204 or
// empty body returns nil bytes.
func (s *Spotify) call(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build player request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read player response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("player API status %d", resp.StatusCode)
	}
	return out, nil
}

func (s *Spotify) Playlists(ctx context.Context) ([]command.Playlist, error) {
	body, err := s.call(ctx, http.MethodGet, "/me/playlists?limit=50", nil)
	if err != nil {
		return nil, err
	}
	var out []command.Playlist
	gjson.GetBytes(body, "items").ForEach(func(_, p gjson.Result) bool {
		out = append(out, command.Playlist{
			Name: p.Get("name").String(),
			ID:   p.Get("id").String(),
		})
		return true
	})
	return out, nil
}

func (s *Spotify) PlayLiked(ctx context.Context) (int, error) {
	body, err := s.call(ctx, http.MethodGet, "/me/tracks?limit=50", nil)
	if err != nil {
		return 0, err
	}
	var uris []string
	gjson.GetBytes(body, "items").ForEach(func(_, it gjson.Result) bool {
		uris = append(uris, it.Get("track.uri").String())
		return true
	})
	if len(uris) == 0 {
		return 0, fmt.Errorf("no liked songs found")
	}
	rand.Shuffle(len(uris), func(i, j int) { uris[i], uris[j] = uris[j], uris[i] })

	payload := `{"uris":["` + strings.Join(uris, `","`) + `"]}`
	if _, err := s.call(ctx, http.MethodPut, "/me/player/play", strings.NewReader(payload)); err != nil {
		return 0, err
	}
	return len(uris), nil
}

func (s *Spotify) PlayPlaylist(ctx context.Context, id string) error {
	if _, err := s.call(ctx, http.MethodPut, "/me/player/shuffle?state=true", nil); err != nil {
		return err
	}
	payload := fmt.Sprintf(`{"context_uri":"spotify:playlist:%s"}`, id)
	_, err := s.call(ctx, http.MethodPut, "/me/player/play", strings.NewReader(payload))
	return err
}

func (s *Spotify) FindTrack(ctx context.Context, title, artist string) (command.Track, bool, error) {
	query := title
	if artist != "" {
		query += " artist:" + artist
	}
	body, err := s.call(ctx, http.MethodGet,
		"/search?type=track&limit=1&q="+url.QueryEscape(query), nil)
	if err != nil {
		return command.Track{}, false, err
	}
	item := gjson.GetBytes(body, "tracks.items.0")
	if !item.Exists() {
		return command.Track{}, false, nil
	}
	track := command.Track{
		Title: item.Get("name").String(),
		URI:   item.Get("uri").String(),
	}
	item.Get("artists").ForEach(func(_, a gjson.Result) bool {
		track.Artists = append(track.Artists, a.Get("name").String())
		return true
	})
	return track, true, nil
}

func (s *Spotify) PlayTrack(ctx context.Context, uri string) error {
	payload := fmt.Sprintf(`{"uris":["%s"]}`, uri)
	_, err := s.call(ctx, http.MethodPut, "/me/player/play", strings.NewReader(payload))
	return err
}

func (s *Spotify) Pause(ctx context.Context) error {
	_, err := s.call(ctx, http.MethodPut, "/me/player/pause", nil)
	return err
}

func (s *Spotify) Resume(ctx context.Context) error {
	_, err := s.call(ctx, http.MethodPut, "/me/player/play", nil)
	return err
}

func (s *Spotify) Stop(ctx context.Context) error {
	return s.Pause(ctx)
}

func (s *Spotify) Skip(ctx context.Context) error {
	_, err := s.call(ctx, http.MethodPost, "/me/player/next", nil)
	return err
}

func (s *Spotify) NowPlaying(ctx context.Context) (command.Playback, error) {
	body, err := s.call(ctx, http.MethodGet, "/me/player/currently-playing", nil)
	if err != nil {
		return command.Playback{}, err
	}
	if len(body) == 0 {
		return command.Playback{}, nil
	}
	root := gjson.ParseBytes(body)
	item := root.Get("item")
	if !item.Exists() {
		return command.Playback{}, nil
	}
	pb := command.Playback{
		Active:  true,
		Playing: root.Get("is_playing").Bool(),
		Track: command.Track{
			Title: item.Get("name").String(),
			URI:   item.Get("uri").String(),
		},
	}
	item.Get("artists").ForEach(func(_, a gjson.Result) bool {
		pb.Track.Artists = append(pb.Track.Artists, a.Get("name").String())
		return true
	})
	return pb, nil
}

func (s *Spotify) Volume(ctx context.Context) (int, error) {
	body, err := s.call(ctx, http.MethodGet, "/me/player", nil)
	if err != nil {
		return 0, err
	}
	vol := gjson.GetBytes(body, "device.volume_percent")
	if !vol.Exists() {
		return 0, fmt.Errorf("no active device")
	}
	return int(vol.Int()), nil
}

func (s *Spotify) SetVolume(ctx context.Context, percent int) error {
	_, err := s.call(ctx, http.MethodPut,
		"/me/player/volume?volume_percent="+strconv.Itoa(percent), nil)
	return err
}
