package horde

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// ModelReferenceURL is the community-maintained model reference that
// lists per-model generation constraints.
const ModelReferenceURL = "https://raw.githubusercontent.com/Haidra-Org/AI-Horde-image-model-reference/refs/heads/main/stable_diffusion.json"

// Range is an inclusive numeric constraint.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Requirements are the folded constraints for one model. Fixed holds
// single-valued settings, Ranges holds min/max pairs, Samplers and
// Schedulers list the accepted names.
type Requirements struct {
	Fixed      map[string]float64
	Ranges     map[string]Range
	Samplers   []string
	Schedulers []string
}

// Empty reports whether the model has no constraints at all.
func (r Requirements) Empty() bool {
	return len(r.Fixed) == 0 && len(r.Ranges) == 0 &&
		len(r.Samplers) == 0 && len(r.Schedulers) == 0
}

// Apply rewrites params so they satisfy the model's constraints: fixed
// settings override, out-of-range values drop to the range minimum, and
// unknown sampler or scheduler names fall back to the first accepted one.
func (r Requirements) Apply(p *GenerationParams) {
	for name, v := range r.Fixed {
		setParam(p, name, v)
	}
	for name, rng := range r.Ranges {
		if !rng.Contains(getParam(p, name)) {
			setParam(p, name, rng.Min)
		}
	}
	if len(r.Samplers) > 0 && !slices.Contains(r.Samplers, p.SamplerName) {
		p.SamplerName = r.Samplers[0]
	}
	if len(r.Schedulers) > 0 && !slices.Contains(r.Schedulers, p.SchedulerName) {
		p.SchedulerName = r.Schedulers[0]
	}
}

func getParam(p *GenerationParams, name string) float64 {
	switch name {
	case "cfg_scale":
		return p.CfgScale
	case "steps":
		return float64(p.Steps)
	case "clip_skip":
		return float64(p.ClipSkip)
	default:
		return 0
	}
}

func setParam(p *GenerationParams, name string, v float64) {
	switch name {
	case "cfg_scale":
		p.CfgScale = v
	case "steps":
		p.Steps = int(v)
	case "clip_skip":
		p.ClipSkip = int(v)
	}
}

type referenceModel struct {
	Requirements map[string]json.RawMessage `json:"requirements"`
}

// ModelRequirements downloads the model reference and folds each model's
// raw requirements into [Requirements]. Models without constraints are
// left out of the result.
func (c *Client) ModelRequirements(ctx context.Context) (map[string]Requirements, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ModelReferenceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("horde: build request: %w", err)
	}
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("horde: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("horde: model reference returned status %d", resp.StatusCode)
	}

	var reference map[string]referenceModel
	if err := json.NewDecoder(resp.Body).Decode(&reference); err != nil {
		return nil, fmt.Errorf("horde: decode model reference: %w", err)
	}

	folded := make(map[string]Requirements)
	for model, ref := range reference {
		if len(ref.Requirements) == 0 {
			continue
		}
		folded[model] = foldRequirements(ref.Requirements)
	}
	return folded, nil
}

// foldRequirements turns the reference's flat requirement keys into
// structured constraints: min_X and max_X pairs become a range on X (a
// lone bound closes the range on itself), equal bounds collapse into a
// fixed value, and list-valued keys become accepted-name lists.
func foldRequirements(raw map[string]json.RawMessage) Requirements {
	reqs := Requirements{
		Fixed:  map[string]float64{},
		Ranges: map[string]Range{},
	}
	bounds := map[string]*Range{}

	for name, val := range raw {
		switch {
		case strings.HasPrefix(name, "min_"):
			var v float64
			if json.Unmarshal(val, &v) != nil {
				continue
			}
			key := strings.TrimPrefix(name, "min_")
			if r, ok := bounds[key]; ok {
				r.Min = v
			} else {
				bounds[key] = &Range{Min: v, Max: v}
			}
		case strings.HasPrefix(name, "max_"):
			var v float64
			if json.Unmarshal(val, &v) != nil {
				continue
			}
			key := strings.TrimPrefix(name, "max_")
			if r, ok := bounds[key]; ok {
				r.Max = v
			} else {
				bounds[key] = &Range{Min: 0, Max: v}
			}
		default:
			var list []string
			if json.Unmarshal(val, &list) == nil {
				switch name {
				case "samplers":
					reqs.Samplers = list
				case "schedulers":
					reqs.Schedulers = list
				}
				continue
			}
			var v float64
			if json.Unmarshal(val, &v) == nil {
				reqs.Fixed[name] = v
			}
		}
	}

	for key, r := range bounds {
		if r.Min == r.Max {
			reqs.Fixed[key] = r.Min
			continue
		}
		reqs.Ranges[key] = *r
	}
	return reqs
}
