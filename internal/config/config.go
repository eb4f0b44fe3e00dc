package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "fistopy"

type Config struct {
	Library LibraryConfig `koanf:"library"`
	Log     LogConfig     `koanf:"log"`

	Spotify     SpotifyConfig     `koanf:"spotify"`
	Lastfm      LastfmConfig      `koanf:"lastfm"`
	YouTube     YouTubeConfig     `koanf:"youtube"`
	MusicBrainz MusicBrainzConfig `koanf:"musicbrainz"`

	Match  MatchConfig  `koanf:"match"`
	Radio  RadioConfig  `koanf:"radio"`
	Export ExportConfig `koanf:"export"`
	Import ImportConfig `koanf:"import"`
}

// LibraryConfig holds where music and application data live.
type LibraryConfig struct {
	MusicDir string `koanf:"music_dir"` // default root for local imports
	DataDir  string `koanf:"data_dir"`  // database and cover art (default: $XDG_DATA_HOME/fistopy)
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level string `koanf:"level"` // trace, debug, info, warn, error (default: info)
	File  string `koanf:"file"`  // JSON log file; console on stderr when empty
}

// SpotifyConfig holds client-credentials for the Spotify Web API.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	Market       string `koanf:"market"`
}

// LastfmConfig holds Last.fm API access. SessionKey enables scrobbling.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	Username   string `koanf:"username"`
	SessionKey string `koanf:"session_key"`
}

// YouTubeConfig holds the YouTube Data API key.
type YouTubeConfig struct {
	APIKey string `koanf:"api_key"`
}

// MusicBrainzConfig holds MusicBrainz-related configuration.
type MusicBrainzConfig struct {
	AlbumsOnly *bool `koanf:"albums_only"` // filter release groups to albums only (default: true)
}

// MatchConfig tunes the external album matcher.
type MatchConfig struct {
	MaxDistance      float64 `koanf:"max_distance"`       // reject matches above this (default: 1.0)
	TrackMaxDistance float64 `koanf:"track_max_distance"` // per-track cutoff (default: 0.5)
	IncludeUnmatched bool    `koanf:"include_unmatched"`  // append unmatched candidate tracks
}

// RadioConfig holds radio mode configuration.
type RadioConfig struct {
	BufferSize           int     `koanf:"buffer_size"`            // Number of tracks to queue ahead (1-50, default: 10)
	CacheTTLDays         int     `koanf:"cache_ttl_days"`         // Cache TTL in days (default: 7)
	ArtistMatchThreshold float64 `koanf:"artist_match_threshold"` // Fuzzy match threshold (0.0-1.0, default: 0.8)
	TopTrackBoost        float64 `koanf:"top_track_boost"`        // Multiplier for an artist's #1 track, fading with rank (default: 3.0)
	UserBoost            float64 `koanf:"user_boost"`             // Multiplier for scrobbled tracks (default: 1.3)
	FavoriteBoost        float64 `koanf:"favorite_boost"`         // Multiplier for tracks in Favorites (default: 2.0)
	DecayFactor          float64 `koanf:"decay_factor"`           // Score multiplier for recently played (default: 0.1)
	MaxArtistRepeat      int     `koanf:"max_artist_repeat"`      // Max tracks per artist in one batch (default: 2)
	SimilarArtistsLimit  int     `koanf:"similar_artists_limit"`  // Similar artists fetched from Last.fm (default: 50)
	ArtistsPerFill       int     `koanf:"artists_per_fill"`       // Artists sampled per batch (default: 5)
	MinSimilarityWeight  float64 `koanf:"min_similarity_weight"`  // Floor for similarity weights (default: 0.1)
}

// ExportConfig holds defaults for the export command.
type ExportConfig struct {
	Dir       string `koanf:"dir"`
	Structure string `koanf:"structure"` // "flat", "hierarchical", "single" (default: hierarchical)
	Convert   bool   `koanf:"convert"`   // FLAC to MP3 via ffmpeg
	WriteTags *bool  `koanf:"write_tags"`
}

// ImportConfig tunes import paging and parallelism.
type ImportConfig struct {
	PageSize int `koanf:"page_size"` // default: 20
	Workers  int `koanf:"workers"`   // default: 4
}

// Load reads the config files in priority order. extra, when non-empty,
// is loaded last and must exist.
func Load(extra string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}
	if extra != "" {
		if err := k.Load(file.Provider(expandPath(extra)), toml.Parser()); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Library.MusicDir = expandPath(cfg.Library.MusicDir)
	cfg.Library.DataDir = expandPath(cfg.Library.DataDir)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Export.Dir = expandPath(cfg.Export.Dir)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/fistopy/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DataDir returns the data directory, falling back to the XDG data home.
func (c *Config) DataDir() string {
	if c.Library.DataDir != "" {
		return c.Library.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), "fistopy.db")
}

// CoversDir returns the root directory for stored album art.
func (c *Config) CoversDir() string {
	return filepath.Join(c.DataDir(), "covers")
}

// HasSpotifyConfig returns true if Spotify client credentials are set.
func (c *Config) HasSpotifyConfig() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// HasLastfmConfig returns true if the Last.fm API is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// CanScrobble returns true if Last.fm write calls are possible.
func (c *Config) CanScrobble() bool {
	return c.HasLastfmConfig() && c.Lastfm.SessionKey != ""
}

// HasYouTubeConfig returns true if a YouTube API key is set.
func (c *Config) HasYouTubeConfig() bool {
	return c.YouTube.APIKey != ""
}

// AlbumsOnly reports whether MusicBrainz release groups are limited to albums.
func (c *Config) AlbumsOnly() bool {
	if c.MusicBrainz.AlbumsOnly == nil {
		return true
	}
	return *c.MusicBrainz.AlbumsOnly
}

// GetMatchConfig returns the matcher configuration with defaults applied.
func (c *Config) GetMatchConfig() MatchConfig {
	cfg := c.Match
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = 1.0
	}
	if cfg.TrackMaxDistance <= 0 || cfg.TrackMaxDistance > 1 {
		cfg.TrackMaxDistance = 0.5
	}
	return cfg
}

// GetRadioConfig returns the radio configuration with defaults applied.
func (c *Config) GetRadioConfig() RadioConfig {
	cfg := c.Radio

	if cfg.BufferSize <= 0 || cfg.BufferSize > 50 {
		cfg.BufferSize = 10
	}
	if cfg.CacheTTLDays <= 0 {
		cfg.CacheTTLDays = 7
	}
	if cfg.ArtistMatchThreshold <= 0 || cfg.ArtistMatchThreshold > 1 {
		cfg.ArtistMatchThreshold = 0.8
	}
	if cfg.TopTrackBoost < 1 {
		cfg.TopTrackBoost = 3.0
	}
	if cfg.UserBoost <= 0 {
		cfg.UserBoost = 1.3
	}
	if cfg.FavoriteBoost <= 0 {
		cfg.FavoriteBoost = 2.0
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor > 1 {
		cfg.DecayFactor = 0.1
	}
	if cfg.MaxArtistRepeat <= 0 {
		cfg.MaxArtistRepeat = 2
	}
	if cfg.SimilarArtistsLimit <= 0 {
		cfg.SimilarArtistsLimit = 50
	}
	if cfg.ArtistsPerFill <= 0 {
		cfg.ArtistsPerFill = 5
	}
	if cfg.MinSimilarityWeight <= 0 || cfg.MinSimilarityWeight > 1 {
		cfg.MinSimilarityWeight = 0.1
	}

	return cfg
}

// GetExportConfig returns the export configuration with defaults applied.
func (c *Config) GetExportConfig() ExportConfig {
	cfg := c.Export
	switch cfg.Structure {
	case "flat", "hierarchical", "single":
	default:
		cfg.Structure = "hierarchical"
	}
	if cfg.WriteTags == nil {
		t := true
		cfg.WriteTags = &t
	}
	return cfg
}

// GetImportConfig returns the import configuration with defaults applied.
func (c *Config) GetImportConfig() ImportConfig {
	cfg := c.Import
	if cfg.PageSize <= 0 || cfg.PageSize > 50 {
		cfg.PageSize = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return cfg
}
