package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fectp/hordeimg/internal/cache"
	"github.com/fectp/hordeimg/internal/horde"
)

// catalogMaxAge is how long a fetched model catalog stays fresh.
const catalogMaxAge = 5 * 24 * time.Hour

// modelCatalog is the locally cached list of usable models.
type modelCatalog struct {
	Models []string
	New    []string // first seen on the latest refresh
}

// Has reports whether the catalog contains the given model.
func (c modelCatalog) Has(name string) bool {
	for _, m := range c.Models {
		if m == name {
			return true
		}
	}
	return false
}

// loadCatalog returns the most used models on the horde. Fetched catalogs
// are cached for a few days; when the horde cannot be reached the built-in
// defaults keep the command usable offline.
func loadCatalog(ctx context.Context, client *horde.Client, cfg *Config, inpainting bool) modelCatalog {
	id := "models"
	defaults := horde.DefaultModels
	if inpainting {
		id = "inpaint-models"
		defaults = horde.DefaultInpaintModels
	}

	fresh, err := cache.NewExpiring[[]string](cfg.CachePath)
	if err != nil {
		return modelCatalog{Models: defaults}
	}

	if !cfg.NoCache {
		if models, err := fresh.Load(id); err == nil && len(models) > 0 {
			return modelCatalog{Models: models}
		}
	}

	models, err := client.TopModels(ctx, inpainting)
	if err != nil || len(models) == 0 {
		return modelCatalog{Models: defaults}
	}

	cat := modelCatalog{Models: models}

	// Diff against the previously known list so newly popular models can
	// be pointed out once.
	if known, err := cache.New[[]string](cfg.CachePath, cache.CatalogCache); err == nil {
		if prev, err := known.Load(id); err == nil && len(prev) > 0 {
			seen := make(map[string]struct{}, len(prev))
			for _, m := range prev {
				seen[m] = struct{}{}
			}
			for _, m := range models {
				if _, ok := seen[m]; !ok {
					cat.New = append(cat.New, m)
				}
			}
		}
		_ = known.Store(id, models)
	}

	_ = fresh.Store(id, time.Now().Add(catalogMaxAge), models)
	return cat
}

// loadRequirements returns the per-model generation constraints published
// in the model reference. Best effort: a nil map means no constraints are
// enforced client side.
func loadRequirements(ctx context.Context, client *horde.Client, cfg *Config) map[string]horde.Requirements {
	const id = "model-requirements"

	reqCache, err := cache.NewExpiring[map[string]horde.Requirements](cfg.CachePath)
	if err == nil && !cfg.NoCache {
		if reqs, err := reqCache.Load(id); err == nil && len(reqs) > 0 {
			return reqs
		}
	}

	reqs, err := client.ModelRequirements(ctx)
	if err != nil {
		return nil
	}
	if reqCache != nil {
		_ = reqCache.Store(id, time.Now().Add(catalogMaxAge), reqs)
	}
	return reqs
}

// listModels prints the model catalog.
func listModels(ctx context.Context, client *horde.Client, cfg *Config) error {
	cat := loadCatalog(ctx, client, cfg, cfg.Inpaint)
	s := stdoutStyles()
	def := horde.DefaultModel
	if cfg.Inpaint {
		def = horde.DefaultInpaintModel
	}
	for _, m := range cat.Models {
		if m == def {
			fmt.Printf("%s %s\n", m, s.Comment.Render("(default)"))
			continue
		}
		fmt.Println(m)
	}
	return nil
}
