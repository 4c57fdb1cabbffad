package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/rarity"
)

var clock = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newResolver(t *testing.T, baseURL string, cacheSize int) *Resolver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.CacheSize = cacheSize
	return New(cfg, zaptest.NewLogger(t),
		WithSource(rarity.NewSource(1)),
		WithClock(func() time.Time { return clock }),
	)
}

func TestResolve_RemotePage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var gotQuery, gotSize, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotQuery = r.URL.Query().Get("q")
		gotSize = r.URL.Query().Get("pageSize")
		gotKey = r.Header.Get("X-Api-Key")
		mu.Unlock()
		fmt.Fprint(w, `{"data":[{"id":"base1-4","name":"Charizard","nationalPokedexNumbers":[6],"images":{"small":"https://img/s.png","large":"https://img/l.png"}}]}`)
	}))
	defer srv.Close()

	r := newResolver(t, srv.URL, 0)
	it := r.Resolve(context.Background(), model.RarityLegendary)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, `rarity:"rare holo"`, gotQuery)
	require.Equal(t, "250", gotSize)
	require.Equal(t, "test-key", gotKey)
	require.Equal(t, 6, it.ExternalID)
	require.Equal(t, "Charizard", it.Name)
	require.Equal(t, "https://img/s.png", it.ImageRef)
	require.Equal(t, model.RarityLegendary, it.Rarity)
	require.Equal(t, clock, it.AcquiredAt)
}

func TestResolve_FallbackOnFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"empty page": func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":`)
		},
		"only nameless cards": func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":[{"id":"base1-4","images":{"small":"x.png"}},{"id":"base1-5","name":"  "}]}`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			r := newResolver(t, srv.URL, 8)

			for _, rar := range model.Rarities() {
				for i := 0; i < 20; i++ {
					it := r.Resolve(context.Background(), rar)
					requireFromFallback(t, rar, it)
				}
			}
		})
	}
}

func TestResolve_SkipsNamelessCards(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"base1-1"},{"id":"base1-2","name":" Blastoise ","nationalPokedexNumbers":[9]},{"id":"base1-3","name":""}]}`)
	}))
	defer srv.Close()

	r := newResolver(t, srv.URL, 8)
	for i := 0; i < 20; i++ {
		it := r.Resolve(context.Background(), model.RarityRare)
		require.Equal(t, "Blastoise", it.Name)
		require.Equal(t, 9, it.ExternalID)
		require.Equal(t, PlaceholderImage, it.ImageRef)
	}
}

func TestResolve_FallbackOnNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := newResolver(t, url, 0)
	it := r.Resolve(context.Background(), model.RarityRare)
	requireFromFallback(t, model.RarityRare, it)
	require.Equal(t, clock, it.AcquiredAt)
}

func TestResolve_FallbackWithoutBaseURL(t *testing.T) {
	t.Parallel()

	r := newResolver(t, "", 0)
	requireFromFallback(t, model.RarityCommon, r.Resolve(context.Background(), model.RarityCommon))
}

func TestResolve_CachesPages(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"data":[{"id":"sv1-25","name":"Pikachu","images":{}}]}`)
	}))
	defer srv.Close()

	r := newResolver(t, srv.URL, 4)
	for i := 0; i < 5; i++ {
		it := r.Resolve(context.Background(), model.RarityCommon)
		require.Equal(t, "Pikachu", it.Name)
	}
	require.Equal(t, int32(1), hits.Load())

	r.Resolve(context.Background(), model.RarityRare)
	require.Equal(t, int32(2), hits.Load(), "tags are cached separately")
}

func TestResolve_CacheExpires(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"data":[{"id":"x","name":"Eevee"}]}`)
	}))
	defer srv.Close()

	now := clock
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.CacheTTL = time.Minute
	r := New(cfg, zaptest.NewLogger(t), WithClock(func() time.Time { return now }))

	r.Resolve(context.Background(), model.RarityCommon)
	now = now.Add(2 * time.Minute)
	r.Resolve(context.Background(), model.RarityCommon)
	require.Equal(t, int32(2), hits.Load())
}

func TestExternalID(t *testing.T) {
	t.Parallel()

	c := card{ID: "xy7-54", NationalPokedexNumbers: []int{133}}
	require.Equal(t, 133, externalID(c))

	c = card{ID: "xy7-54"}
	require.Equal(t, 754, externalID(c))

	c = card{ID: "promo"}
	require.Equal(t, 1, externalID(c))

	c = card{ID: "99999999999999999999999"}
	require.Equal(t, 1, externalID(c), "overflow falls back to 1")

	c = card{ID: "sv1-9999999999"}
	require.Equal(t, 1, externalID(c), "beyond int32 falls back to 1")

	c = card{ID: "sv1-12", NationalPokedexNumbers: []int{1 << 40}}
	require.Equal(t, 112, externalID(c), "oversized dex number is ignored")
}

func TestImageRef(t *testing.T) {
	t.Parallel()

	var c card
	require.Equal(t, PlaceholderImage, imageRef(c))
	c.Images.Large = "l"
	require.Equal(t, "l", imageRef(c))
	c.Images.Small = "s"
	require.Equal(t, "s", imageRef(c))
}

func requireFromFallback(t *testing.T, rar model.Rarity, it model.CollectibleItem) {
	t.Helper()
	require.Equal(t, rar, it.Rarity)
	found := false
	for _, e := range fallback[rar] {
		if e.id == it.ExternalID && e.name == it.Name && e.image == it.ImageRef {
			found = true
			break
		}
	}
	require.True(t, found, "item %+v not in %s fallback list", it, rar)
}
