// Package catalog resolves a rarity tier into a concrete collectible item.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/rarity"
)

// PlaceholderImage is used when a catalog entry carries no image.
const PlaceholderImage = "🎴"

const maxBody = 16 << 20

// Config describes the remote catalog.
type Config struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	Timeout   time.Duration
	Tags      map[model.Rarity]string // query per rarity
	CacheSize int                     // pages kept; <= 0 disables caching
	CacheTTL  time.Duration
}

// DefaultConfig targets the public Pokémon TCG API.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.pokemontcg.io/v2/cards",
		PageSize: 250,
		Timeout:  5 * time.Second,
		Tags: map[model.Rarity]string{
			model.RarityCommon:    "rarity:common",
			model.RarityRare:      "rarity:rare",
			model.RarityLegendary: `rarity:"rare holo"`,
		},
		CacheSize: 8,
		CacheTTL:  10 * time.Minute,
	}
}

type card struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	NationalPokedexNumbers []int  `json:"nationalPokedexNumbers"`
	Images                 struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
}

type page struct {
	Data []card `json:"data"`
}

type cachedPage struct {
	cards []card
	at    time.Time
}

// Resolver picks items from the remote catalog and degrades to a local
// table on any failure.
type Resolver struct {
	cfg   Config
	http  *http.Client
	src   rarity.Source
	now   func() time.Time
	log   *zap.Logger
	cache *lru.Cache
	group singleflight.Group
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(r *Resolver) { r.http = c } }

// WithSource injects the random source used to pick candidates.
func WithSource(src rarity.Source) Option { return func(r *Resolver) { r.src = src } }

// WithClock injects the clock used for AcquiredAt and cache expiry.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// New constructs a Resolver.
func New(cfg Config, log *zap.Logger, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Tags == nil {
		cfg.Tags = def.Tags
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		src:  rarity.DefaultSource(),
		now:  time.Now,
		log:  log,
	}
	if cfg.CacheSize > 0 {
		r.cache, _ = lru.New(cfg.CacheSize)
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns one item of the requested rarity. It never fails.
func (r *Resolver) Resolve(ctx context.Context, rar model.Rarity) model.CollectibleItem {
	cards, err := r.page(ctx, rar)
	if err == nil && len(cards) == 0 {
		err = errors.New("empty page")
	}
	if err != nil {
		r.log.Warn("catalog unavailable, using fallback",
			zap.String("rarity", string(rar)),
			zap.Error(err),
		)
		return r.fromFallback(rar)
	}

	c := cards[rarity.Pick(r.src, len(cards))]
	return model.CollectibleItem{
		ExternalID: externalID(c),
		Name:       c.Name,
		ImageRef:   imageRef(c),
		Rarity:     rar,
		AcquiredAt: r.now(),
	}
}

func (r *Resolver) fromFallback(rar model.Rarity) model.CollectibleItem {
	list, ok := fallback[rar]
	if !ok {
		rar, list = model.RarityCommon, fallback[model.RarityCommon]
	}
	e := list[rarity.Pick(r.src, len(list))]
	return model.CollectibleItem{
		ExternalID: e.id,
		Name:       e.name,
		ImageRef:   e.image,
		Rarity:     rar,
		AcquiredAt: r.now(),
	}
}

// page returns the candidate page for rar, served from cache when fresh.
// Concurrent misses on the same tag share one request.
func (r *Resolver) page(ctx context.Context, rar model.Rarity) ([]card, error) {
	tag, ok := r.cfg.Tags[rar]
	if !ok {
		return nil, fmt.Errorf("no catalog tag for rarity %q", rar)
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(tag); ok {
			cp := v.(cachedPage)
			if r.cfg.CacheTTL <= 0 || r.now().Sub(cp.at) < r.cfg.CacheTTL {
				return cp.cards, nil
			}
		}
	}

	v, err, _ := r.group.Do(tag, func() (any, error) {
		cards, err := r.fetch(ctx, tag)
		if err != nil {
			return nil, err
		}
		if r.cache != nil && len(cards) > 0 {
			r.cache.Add(tag, cachedPage{cards: cards, at: r.now()})
		}
		return cards, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]card), nil
}

func (r *Resolver) fetch(ctx context.Context, tag string) ([]card, error) {
	if r.cfg.BaseURL == "" {
		return nil, errors.New("catalog base url not configured")
	}
	u, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", tag)
	q.Set("pageSize", strconv.Itoa(r.cfg.PageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", r.cfg.APIKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var p page
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}
	return usable(p.Data), nil
}

// usable drops entries that cannot become an item.
func usable(cards []card) []card {
	out := cards[:0]
	for _, c := range cards {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// externalID prefers the national dex number, then the digits of the
// catalog id, then 1. Values must fit the INTEGER column.
func externalID(c card) int {
	if len(c.NationalPokedexNumbers) > 0 && validID(c.NationalPokedexNumbers[0]) {
		return c.NationalPokedexNumbers[0]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.ID)
	if n, err := strconv.Atoi(digits); err == nil && validID(n) {
		return n
	}
	return 1
}

func validID(n int) bool { return n > 0 && n <= math.MaxInt32 }

func imageRef(c card) string {
	switch {
	case c.Images.Small != "":
		return c.Images.Small
	case c.Images.Large != "":
		return c.Images.Large
	default:
		return PlaceholderImage
	}
}
