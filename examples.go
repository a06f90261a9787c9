package main

import (
	"math/rand"
)

var examples = map[string]string{
	"Generate an illustration for a post": `hordeimg "a lighthouse in a storm, oil painting, dramatic lighting"`,
	"Pick a model and a bigger canvas":    `hordeimg -m Dreamshaper --width 1024 --height 768 "cozy cabin, winter night"`,
	"Reuse a seed to tweak a result":      `hordeimg --seed 1977 "portrait of a fox in a suit" | xargs xdg-open`,
	"Redraw a sketch with img2img":        `hordeimg --file sketch.png --image-strength 0.4 "watercolor landscape"`,
}

func randomExample() (string, string) {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc, examples[desc]
}
