package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	playlists     []Playlist
	playlistCalls int
	played        []string
	paused        bool
	volume        int
	nowPlaying    Playback
}

func (f *fakePlayer) Playlists(ctx context.Context) ([]Playlist, error) {
	f.playlistCalls++
	return f.playlists, nil
}

func (f *fakePlayer) PlayLiked(ctx context.Context) (int, error) {
	f.played = append(f.played, "liked")
	return 42, nil
}

func (f *fakePlayer) PlayPlaylist(ctx context.Context, id string) error {
	f.played = append(f.played, "playlist:"+id)
	return nil
}

func (f *fakePlayer) FindTrack(ctx context.Context, title, artist string) (Track, bool, error) {
	if title == "nonexistent" {
		return Track{}, false, nil
	}
	return Track{Title: title, Artists: []string{"Some Band"}, URI: "spotify:track:x"}, true, nil
}

func (f *fakePlayer) PlayTrack(ctx context.Context, uri string) error {
	f.played = append(f.played, "track:"+uri)
	return nil
}

func (f *fakePlayer) Pause(ctx context.Context) error  { f.paused = true; return nil }
func (f *fakePlayer) Resume(ctx context.Context) error { f.paused = false; return nil }
func (f *fakePlayer) Stop(ctx context.Context) error   { f.paused = true; return nil }
func (f *fakePlayer) Skip(ctx context.Context) error   { return nil }

func (f *fakePlayer) NowPlaying(ctx context.Context) (Playback, error) {
	return f.nowPlaying, nil
}

func (f *fakePlayer) Volume(ctx context.Context) (int, error) { return f.volume, nil }
func (f *fakePlayer) SetVolume(ctx context.Context, percent int) error {
	f.volume = percent
	return nil
}

func TestMusicClassify(t *testing.T) {
	tests := []struct {
		text    string
		command string
		args    Args
	}{
		{"pause the music", "pause", nil},
		{"pause", "pause", nil},
		{"resume the music", "resume", nil},
		{"stop the music", "stop", nil},
		{"skip this song", "skip", nil},
		{"next song", "skip", nil},
		{"what's playing", "now_playing", nil},
		{"play some music", "play_music", nil},
		{"let's hear some music", "play_music", nil},
		{"music, please", "play_music", nil},
		{"play music", "play_music", nil},
		{"play my workout playlist", "play_playlist", Args{"name": "workout"}},
		{"play the road trip playlist", "play_playlist", Args{"name": "road trip"}},
		{"play bohemian rhapsody by queen", "play_track", Args{"title": "bohemian rhapsody", "artist": "queen"}},
		{"play hotel california", "play_track", Args{"title": "hotel california"}},
	}
	for _, tt := range tests {
		r := classifyMusic(tt.text)
		require.NotNil(t, r, tt.text)
		assert.Equal(t, tt.command, r.Command, tt.text)
		for k, v := range tt.args {
			assert.Equal(t, v, r.Args[k], fmt.Sprintf("%s arg %s", tt.text, k))
		}
	}

	assert.Nil(t, classifyMusic("what time is it"))
}

func TestMusicWeakMatch(t *testing.T) {
	m := NewMusic(nil)
	r := m.Parse("I like spotify a lot")
	require.NotNil(t, r)
	assert.Equal(t, 0.4, r.Score)
	assert.Equal(t, "play_music", r.Command)
}

func TestFindPlaylist(t *testing.T) {
	player := &fakePlayer{playlists: []Playlist{
		{Name: "Workout Mix", ID: "p1"},
		{Name: "Road Trip 2024", ID: "p2"},
		{Name: "Chill Evening Vibes", ID: "p3"},
	}}
	m := NewMusic(player)
	ctx := context.Background()

	// Exact (normalized) match.
	p, ok, err := m.findPlaylist(ctx, "workout mix")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	// Substring match.
	p, ok, err = m.findPlaylist(ctx, "road trip")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p2", p.ID)

	// Word overlap.
	p, ok, err = m.findPlaylist(ctx, "chill vibes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p3", p.ID)

	_, ok, err = m.findPlaylist(ctx, "polka party")
	require.NoError(t, err)
	assert.False(t, ok)

	// The playlist library is cached.
	assert.Equal(t, 1, player.playlistCalls)
}

func TestMusicHandle(t *testing.T) {
	player := &fakePlayer{playlists: []Playlist{{Name: "Workout Mix", ID: "p1"}}}
	m := NewMusic(player)

	resp := m.Handle(&Result{Command: "play_music"})
	assert.Equal(t, "Playing your liked songs. 42 tracks shuffled.", resp)

	resp = m.Handle(&Result{Command: "play_playlist", Args: Args{"name": "workout"}})
	assert.Equal(t, "Playing your Workout Mix playlist.", resp)

	// "liked songs" is not a real playlist.
	resp = m.Handle(&Result{Command: "play_playlist", Args: Args{"name": "liked songs"}})
	assert.Equal(t, "Playing your liked songs. 42 tracks shuffled.", resp)

	resp = m.Handle(&Result{Command: "play_playlist", Args: Args{"name": "polka party"}})
	assert.Equal(t, "I couldn't find a playlist called polka party.", resp)

	resp = m.Handle(&Result{Command: "play_track", Args: Args{"title": "hotel california"}})
	assert.Equal(t, "Playing hotel california by Some Band.", resp)

	resp = m.Handle(&Result{Command: "play_track", Args: Args{"title": "nonexistent"}})
	assert.Equal(t, "I couldn't find a song called nonexistent.", resp)

	resp = m.Handle(&Result{Command: "pause"})
	assert.Equal(t, "Music paused.", resp)
	assert.True(t, player.paused)

	player.nowPlaying = Playback{
		Active: true, Playing: true,
		Track: Track{Title: "Hotel California", Artists: []string{"Eagles"}},
	}
	resp = m.Handle(&Result{Command: "now_playing"})
	assert.Equal(t, "Currently playing: Hotel California by Eagles.", resp)

	player.nowPlaying = Playback{}
	resp = m.Handle(&Result{Command: "now_playing"})
	assert.Equal(t, "Nothing is playing right now.", resp)
}

func TestMusicDuckRestore(t *testing.T) {
	player := &fakePlayer{volume: 70}
	m := NewMusic(player)

	m.DuckVolume(20)
	assert.Equal(t, 20, player.volume)

	m.RestoreVolume()
	assert.Equal(t, 70, player.volume)

	// Restore without a prior duck is a no-op.
	player.volume = 55
	m.RestoreVolume()
	assert.Equal(t, 55, player.volume)
}
