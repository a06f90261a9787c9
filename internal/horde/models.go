package horde

import (
	"context"
	"sort"
	"strings"
)

// Models that are always available on the horde, used before the first
// catalog refresh and as a floor afterwards.
const (
	DefaultModel        = "stable_diffusion"
	DefaultInpaintModel = "stable_diffusion_inpainting"
)

// maxCatalogModels caps how many models a catalog refresh keeps.
const maxCatalogModels = 50

// DefaultModels is the built-in generation catalog.
var DefaultModels = []string{
	"Deliberate",
	"Dreamshaper",
	"NatViS",
	"noob_v_pencil XL",
	"Nova Anime XL",
	"Prefect Pony",
	"Realistic Vision",
	"stable_diffusion",
	"Ultraspice",
	"Unstable Diffusers XL",
	"WAI-ANI-NSFW-PONYXL",
}

// DefaultInpaintModels is the built-in inpainting catalog.
var DefaultInpaintModels = []string{
	"A-Zovya RPG Inpainting",
	"Anything Diffusion Inpainting",
	"Epic Diffusion Inpainting",
	"iCoMix Inpainting",
	"Realistic Vision Inpainting",
	"stable_diffusion_inpainting",
}

// TopModels fetches the catalog of the most used models this month:
// the top 50, inpainting models split out by name, the default model
// always included, sorted case-insensitively.
func (c *Client) TopModels(ctx context.Context, inpainting bool) ([]string, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, err
	}

	type usage struct {
		name  string
		count int
	}
	ranked := make([]usage, 0, len(stats.Month))
	for name, count := range stats.Month {
		if isInpaintModel(name) != inpainting {
			continue
		}
		ranked = append(ranked, usage{name, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > maxCatalogModels {
		ranked = ranked[:maxCatalogModels]
	}

	fallback := DefaultModel
	if inpainting {
		fallback = DefaultInpaintModel
	}
	models := make([]string, 0, len(ranked)+1)
	seen := false
	for _, u := range ranked {
		if u.name == fallback {
			seen = true
		}
		models = append(models, u.name)
	}
	if !seen {
		models = append(models, fallback)
	}

	sort.Slice(models, func(i, j int) bool {
		return strings.ToUpper(models[i]) < strings.ToUpper(models[j])
	})
	return models, nil
}

func isInpaintModel(name string) bool {
	return strings.Contains(strings.ToLower(name), "inpaint")
}
