package horde

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func rawReqs(tb testing.TB, s string) map[string]json.RawMessage {
	tb.Helper()
	var raw map[string]json.RawMessage
	require.NoError(tb, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestFoldRequirements(t *testing.T) {
	t.Run("min max pair becomes a range", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"min_steps": 10, "max_steps": 50}`))
		require.Equal(t, Range{Min: 10, Max: 50}, reqs.Ranges["steps"])
		require.NotContains(t, reqs.Fixed, "steps")
	})

	t.Run("equal bounds collapse to fixed", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"min_cfg_scale": 1, "max_cfg_scale": 1}`))
		require.InDelta(t, 1.0, reqs.Fixed["cfg_scale"], 0.001)
		require.NotContains(t, reqs.Ranges, "cfg_scale")
	})

	t.Run("lone min closes on itself", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"min_steps": 20}`))
		require.InDelta(t, 20.0, reqs.Fixed["steps"], 0.001)
	})

	t.Run("lone max opens at zero", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"max_cfg_scale": 12}`))
		require.Equal(t, Range{Min: 0, Max: 12}, reqs.Ranges["cfg_scale"])
	})

	t.Run("plain numbers are fixed", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"clip_skip": 2}`))
		require.InDelta(t, 2.0, reqs.Fixed["clip_skip"], 0.001)
	})

	t.Run("name lists", func(t *testing.T) {
		reqs := foldRequirements(rawReqs(t, `{"samplers": ["k_euler_a"], "schedulers": ["karras"]}`))
		require.Equal(t, []string{"k_euler_a"}, reqs.Samplers)
		require.Equal(t, []string{"karras"}, reqs.Schedulers)
	})

	t.Run("empty", func(t *testing.T) {
		require.True(t, foldRequirements(rawReqs(t, `{}`)).Empty())
	})
}

func TestRequirementsApply(t *testing.T) {
	reqs := Requirements{
		Fixed:  map[string]float64{"clip_skip": 2},
		Ranges: map[string]Range{"cfg_scale": {Min: 2, Max: 10}, "steps": {Min: 10, Max: 50}},
		Samplers: []string{
			"k_euler_a",
			"k_dpmpp_2m",
		},
		Schedulers: []string{"karras"},
	}

	t.Run("conforming params untouched", func(t *testing.T) {
		p := GenerationParams{
			CfgScale:      6.3,
			Steps:         25,
			SamplerName:   "k_dpmpp_2m",
			SchedulerName: "karras",
		}
		reqs.Apply(&p)
		require.InDelta(t, 6.3, p.CfgScale, 0.001)
		require.Equal(t, 25, p.Steps)
		require.Equal(t, "k_dpmpp_2m", p.SamplerName)
	})

	t.Run("out of range drops to range minimum", func(t *testing.T) {
		p := GenerationParams{CfgScale: 30, Steps: 5}
		reqs.Apply(&p)
		require.InDelta(t, 2.0, p.CfgScale, 0.001)
		require.Equal(t, 10, p.Steps)
	})

	t.Run("fixed value always overrides", func(t *testing.T) {
		p := GenerationParams{ClipSkip: 1}
		reqs.Apply(&p)
		require.Equal(t, 2, p.ClipSkip)
	})

	t.Run("unknown sampler falls back to first accepted", func(t *testing.T) {
		p := GenerationParams{SamplerName: "ddim", SchedulerName: "simple"}
		reqs.Apply(&p)
		require.Equal(t, "k_euler_a", p.SamplerName)
		require.Equal(t, "karras", p.SchedulerName)
	})
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 1, Max: 10}
	require.True(t, r.Contains(1))
	require.True(t, r.Contains(10))
	require.False(t, r.Contains(0.5))
	require.False(t, r.Contains(11))
}
