package main

import (
	"testing"

	"github.com/and161185/taskdex/internal/catalog"
	"github.com/and161185/taskdex/internal/config"
	"github.com/and161185/taskdex/internal/model"
)

func TestCatalogConfig_Tags(t *testing.T) {
	c := config.Default().Catalog
	c.Tags = map[string]string{"legendary": `rarity:"rare secret"`}

	cc := catalogConfig(c)
	def := catalog.DefaultConfig()
	if got := cc.Tags[model.RarityLegendary]; got != `rarity:"rare secret"` {
		t.Fatalf("legendary tag = %q", got)
	}
	if got := cc.Tags[model.RarityCommon]; got != def.Tags[model.RarityCommon] {
		t.Fatalf("common tag = %q, want default %q", got, def.Tags[model.RarityCommon])
	}
	if got := catalog.DefaultConfig().Tags[model.RarityLegendary]; got != def.Tags[model.RarityLegendary] {
		t.Fatalf("defaults were mutated: %q", got)
	}
}

func TestCatalogConfig_Defaults(t *testing.T) {
	cc := catalogConfig(config.Default().Catalog)
	if cc.PageSize != 250 || cc.CacheSize != 8 || len(cc.Tags) != len(model.Rarities()) {
		t.Fatalf("unexpected config: %+v", cc)
	}
}
