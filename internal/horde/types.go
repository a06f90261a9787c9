package horde

import (
	"fmt"
	"net/http"
	"time"
)

// SourceProcessing selects how a source image is used by the workers.
type SourceProcessing string

// Source processing modes.
const (
	ProcessingImg2Img    SourceProcessing = "img2img"
	ProcessingInpainting SourceProcessing = "inpainting"
)

// GenerationParams are the sampler parameters forwarded to the worker.
type GenerationParams struct {
	CfgScale          float64 `json:"cfg_scale,omitempty"`
	Steps             int     `json:"steps,omitempty"`
	Seed              string  `json:"seed,omitempty"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
	N                 int     `json:"n,omitempty"`
	DenoisingStrength float64 `json:"denoising_strength,omitempty"`
	SamplerName       string  `json:"sampler_name,omitempty"`
	SchedulerName     string  `json:"scheduler_name,omitempty"`
	ClipSkip          int     `json:"clip_skip,omitempty"`
}

// GenerationInput is the body for the async generation request.
type GenerationInput struct {
	Prompt           string           `json:"prompt"`
	Params           GenerationParams `json:"params"`
	NSFW             bool             `json:"nsfw"`
	CensorNSFW       bool             `json:"censor_nsfw"`
	Models           []string         `json:"models,omitempty"`
	R2               bool             `json:"r2"`
	SourceImage      string           `json:"source_image,omitempty"`
	SourceProcessing SourceProcessing `json:"source_processing,omitempty"`
}

// Warning is a non-fatal remark attached to an accepted request.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequestAsync is the response to a generation submission.
type RequestAsync struct {
	ID       string    `json:"id"`
	Kudos    float64   `json:"kudos"`
	Warnings []Warning `json:"warnings"`
}

// Check is the lightweight polling status of a queued job.
type Check struct {
	Done          bool    `json:"done"`
	Faulted       bool    `json:"faulted"`
	Finished      int     `json:"finished"`
	Processing    int     `json:"processing"`
	Waiting       int     `json:"waiting"`
	QueuePosition int     `json:"queue_position"`
	WaitTime      int     `json:"wait_time"`
	IsPossible    bool    `json:"is_possible"`
	Kudos         float64 `json:"kudos"`
}

// WaitDuration returns the worker-estimated time before the job completes.
func (c Check) WaitDuration() time.Duration {
	return time.Duration(c.WaitTime) * time.Second
}

// Generation is a single finished image.
type Generation struct {
	ID       string `json:"id"`
	Img      string `json:"img"` // R2 URL, or base64 when r2 is off
	Seed     string `json:"seed"`
	Model    string `json:"model"`
	WorkerID string `json:"worker_id"`
	Worker   string `json:"worker_name"`
	Censored bool   `json:"censored"`
}

// Status is the full job status, including finished generations.
type Status struct {
	Check
	Generations []Generation `json:"generations"`
}

// UserDetails describes the account behind an API key.
type UserDetails struct {
	Username string  `json:"username"`
	ID       int     `json:"id"`
	Kudos    float64 `json:"kudos"`
	Trusted  bool    `json:"trusted"`
}

// ModelStats maps model names to their monthly usage count.
type ModelStats struct {
	Month map[string]int `json:"month"`
}

// Return codes the client gives special treatment to.
const (
	RCKudosUpfront = "KudosUpfront"
)

// Error is an error reported by the AIHorde API.
type Error struct {
	StatusCode int
	Message    string `json:"message"`
	RC         string `json:"rc"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("aihorde: unexpected status %d", e.StatusCode)
}

// Temporary reports whether the request may succeed if retried later.
func (e *Error) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}
