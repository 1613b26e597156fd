package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentstats/server/internal/models"
)

const cacheFileName = "geocode_cache.json"

// Options configures a Geocoder.
type Options struct {
	BaseURL   string
	CacheDir  string // no disk cache when empty
	UserAgent string
	Timeout   time.Duration

	// Minimum pause between two upstream requests
	MinInterval time.Duration
}

// Geocoder resolves free text place names through a Nominatim compatible
// search endpoint. Results are cached in memory and, when a cache directory
// is configured, in a JSON file.
type Geocoder struct {
	logger    *logrus.Logger
	opts      Options
	cache     map[string]models.Place
	cacheLock sync.RWMutex
	client    *http.Client

	rateLock    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	g := &Geocoder{
		logger: logger,
		opts:   opts,
		cache:  make(map[string]models.Place),
		client: &http.Client{Timeout: opts.Timeout},
	}

	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.opts.CacheDir, cacheFileName)
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.WithError(err).Warn("Could not load geocode cache")
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.WithError(err).Error("Failed to parse geocode cache")
		g.cache = make(map[string]models.Place)
		return
	}

	g.logger.WithField("entries", len(g.cache)).Info("Loaded geocode cache")
}

// saveCache writes the cache to disk. The caller holds cacheLock.
func (g *Geocoder) saveCache() {
	if g.opts.CacheDir == "" {
		return
	}

	data, err := json.Marshal(g.cache)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal geocode cache")
		return
	}

	if err := os.WriteFile(g.cacheFile(), data, 0644); err != nil {
		g.logger.WithError(err).Error("Failed to save geocode cache")
	}
}

func cacheKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

type nominatimResponse []struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// Geocode returns the best match for text. It returns models.ErrNotFound
// when nothing matches and an error matching models.ErrUpstreamUnavailable
// when the geocoding service cannot be reached.
func (g *Geocoder) Geocode(ctx context.Context, text string) (*models.Place, error) {
	key := cacheKey(text)
	if key == "" {
		return nil, models.NewQueryError("q", "must not be empty")
	}

	g.cacheLock.RLock()
	if place, ok := g.cache[key]; ok {
		g.cacheLock.RUnlock()
		g.logger.WithFields(logrus.Fields{
			"query":  text,
			"source": "cache",
		}).Debug("Found place in cache")
		return &place, nil
	}
	g.cacheLock.RUnlock()

	place, err := g.lookup(ctx, text)
	if err != nil {
		return nil, err
	}

	g.cacheLock.Lock()
	g.cache[key] = *place
	g.saveCache()
	g.cacheLock.Unlock()

	return place, nil
}

// wait respects the upstream usage policy of one request per MinInterval.
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := g.opts.MinInterval - time.Since(g.lastRequest); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	g.lastRequest = time.Now()
	return nil
}

func (g *Geocoder) lookup(ctx context.Context, text string) (*models.Place, error) {
	logger := g.logger.WithField("query", text)
	logger.Info("Geocoding place with Nominatim")

	if err := g.wait(ctx); err != nil {
		return nil, models.NewUpstreamError("geocode", err)
	}

	params := url.Values{
		"q":      []string{text},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	if g.opts.UserAgent != "" {
		req.Header.Set("User-Agent", g.opts.UserAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("Geocoding request failed")
		return nil, models.NewUpstreamError("geocode", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		logger.WithError(err).Error("Geocoding request failed")
		return nil, models.NewUpstreamError("geocode", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("Failed to read response")
		return nil, models.NewUpstreamError("geocode", fmt.Errorf("failed to read response: %w", err))
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		logger.WithError(err).Error("Failed to parse response")
		return nil, models.NewUpstreamError("geocode", fmt.Errorf("failed to parse response: %w", err))
	}

	if len(result) == 0 {
		logger.Warn("No results found")
		return nil, fmt.Errorf("no place found for %q: %w", text, models.ErrNotFound)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return nil, models.NewUpstreamError("geocode", fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err))
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return nil, models.NewUpstreamError("geocode", fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err))
	}

	place := &models.Place{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: result[0].DisplayName,
		Type:        result[0].Type,
	}

	logger.WithFields(logrus.Fields{
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded place")

	return place, nil
}
