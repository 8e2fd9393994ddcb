// Package catalog supplies the champion list a draft is played over.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

const (
	DefaultBaseURL = "https://ddragon.leagueoflegends.com"
	DefaultVersion = "14.11.1"
	DefaultTTL     = 24 * time.Hour

	// fetchTimeout bounds a shared upstream fetch, which outlives any one caller.
	fetchTimeout = 30 * time.Second
)

var ErrUpstream = errors.New("champion catalog unavailable")

type Source interface {
	Fetch(ctx context.Context, version string) ([]engine.Champion, error)
}

// DataDragon reads the static champion.json published by Riot.
type DataDragon struct {
	baseURL string
	client  *http.Client
}

func NewDataDragon(baseURL string, client *http.Client) *DataDragon {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DataDragon{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type championFile struct {
	Version string                 `json:"version"`
	Data    map[string]rawChampion `json:"data"`
}

type rawChampion struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Image struct {
		Full string `json:"full"`
	} `json:"image"`
}

func (d *DataDragon) Fetch(ctx context.Context, version string) ([]engine.Champion, error) {
	endpoint := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", d.baseURL, url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var file championFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode champion.json: %v", ErrUpstream, err)
	}
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: empty champion list for %s", ErrUpstream, version)
	}

	champs := make([]engine.Champion, 0, len(file.Data))
	for _, raw := range file.Data {
		champs = append(champs, engine.Champion{
			ID:    raw.ID,
			Key:   raw.Key,
			Name:  raw.Name,
			Title: raw.Title,
			Image: engine.ChampionImage{Full: raw.Image.Full},
		})
	}
	SortByName(champs)
	return champs, nil
}

// SortByName orders champions by display name using English collation,
// ignoring case and diacritics.
func SortByName(champs []engine.Champion) {
	c := collate.New(language.English, collate.Loose)
	sort.SliceStable(champs, func(i, j int) bool {
		if cmp := c.CompareString(champs[i].Name, champs[j].Name); cmp != 0 {
			return cmp < 0
		}
		return champs[i].ID < champs[j].ID
	})
}

type cacheEntry struct {
	champs    []engine.Champion
	fetchedAt time.Time
}

// Cached remembers each version's catalog for ttl and collapses concurrent
// misses into a single upstream fetch.
type Cached struct {
	src    Source
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCached(src Source, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cached) Fetch(ctx context.Context, version string) ([]engine.Champion, error) {
	c.mu.RLock()
	e, ok := c.entries[version]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return clone(e.champs), nil
	}

	ch := c.group.DoChan(version, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[version]
		c.mu.RUnlock()
		if ok && c.now().Sub(e.fetchedAt) < c.ttl {
			return e.champs, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		champs, err := c.src.Fetch(fetchCtx, version)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[version] = cacheEntry{champs: champs, fetchedAt: c.now()}
		c.mu.Unlock()
		c.logger.Info("champion catalog loaded", zap.String("version", version), zap.Int("champions", len(champs)))
		return champs, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		c.logger.Error("champion catalog fetch failed", zap.String("version", version), zap.Error(res.Err))
		return nil, res.Err
	}
	return clone(res.Val.([]engine.Champion)), nil
}

func clone(champs []engine.Champion) []engine.Champion {
	return append([]engine.Champion(nil), champs...)
}
