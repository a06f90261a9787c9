package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fectp/hordeimg/internal/horde"
)

type state int

const (
	startState state = iota
	requestState
	doneState
	errorState
	cancelState
)

// Hordeimg is the Bubble Tea model that drives a generation end to end:
// submit the job, wait for the horde, download the results.
type Hordeimg struct {
	Config   *Config
	Error    *hordeError
	Images   []savedImage
	Canceled bool

	client   *horde.Client
	db       *genDB
	state    state
	styles   styles
	renderer *lipgloss.Renderer
	anim     tea.Model

	ctx           context.Context
	cancelRequest context.CancelFunc

	jobID     string
	prompt    string
	input     horde.GenerationInput
	kudos     float64
	warnings  []horde.Warning
	newModels []string
	censored  int

	mu       sync.Mutex
	progress horde.Progress
}

func newHordeimg(r *lipgloss.Renderer, cfg *Config, client *horde.Client, db *genDB) *Hordeimg {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hordeimg{
		Config:        cfg,
		client:        client,
		db:            db,
		state:         startState,
		renderer:      r,
		styles:        makeStyles(r),
		ctx:           ctx,
		cancelRequest: cancel,
	}
}

// submittedMsg is sent once the horde accepted the job.
type submittedMsg struct {
	id        string
	kudos     float64
	warnings  []horde.Warning
	newModels []string
	prompt    string
	input     horde.GenerationInput
}

// completedMsg carries the finished job status.
type completedMsg struct {
	status *horde.Status
}

// savedMsg is sent once all images landed on disk.
type savedMsg struct {
	images   []savedImage
	censored int
}

// Init implements tea.Model.
func (m *Hordeimg) Init() tea.Cmd {
	m.state = requestState
	m.anim = newAnim(m.Config.Fanciness, m.Config.StatusText, m.renderer, m.styles)
	return tea.Batch(m.anim.Init(), m.submitCmd())
}

// Update implements tea.Model.
func (m *Hordeimg) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		m.jobID = msg.id
		m.kudos = msg.kudos
		m.warnings = msg.warnings
		m.newModels = msg.newModels
		m.prompt = msg.prompt
		m.input = msg.input
		return m, m.awaitCmd(msg.id)
	case completedMsg:
		return m, m.saveCmd(msg.status)
	case savedMsg:
		m.Images = msg.images
		m.censored = msg.censored
		m.recordHistory()
		m.state = doneState
		return m, tea.Quit
	case hordeError:
		m.Error = &msg
		m.state = errorState
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.state = cancelState
			m.Canceled = true
			m.cancelRequest()
			return m, tea.Sequence(m.cancelJobCmd(), tea.Quit)
		}
	}
	if m.anim != nil {
		var cmd tea.Cmd
		m.anim, cmd = m.anim.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Hordeimg) View() string {
	if m.state == requestState && !m.Config.Quiet {
		return m.anim.View() + m.statusLine() + "\n"
	}
	return ""
}

// submitCmd assembles the generation request and submits it.
func (m *Hordeimg) submitCmd() tea.Cmd {
	return func() tea.Msg {
		cfg := m.Config

		prompt, err := loadPrompt(cfg.Prompt)
		if err != nil {
			return hordeError{err: err, reason: "There was a problem reading the prompt."}
		}
		if strings.TrimSpace(prompt) == "" {
			return hordeError{err: newUserErrorf("the prompt is empty"), reason: "Give the horde something to paint."}
		}

		model := cfg.Model
		if model == "" {
			model = horde.DefaultModel
			if cfg.Inpaint {
				model = horde.DefaultInpaintModel
			}
		}

		catalog := loadCatalog(m.ctx, m.client, cfg, cfg.Inpaint)

		input := horde.GenerationInput{
			Prompt: prompt,
			Params: horde.GenerationParams{
				CfgScale: cfg.CfgScale,
				Steps:    cfg.Steps,
				Seed:     cfg.Seed,
				Width:    cfg.Width,
				Height:   cfg.Height,
				N:        cfg.Count,
			},
			NSFW:       cfg.NSFW,
			CensorNSFW: cfg.CensorNSFW,
			Models:     []string{model},
			R2:         true,
		}

		if cfg.SourceImage != "" {
			img, err := readSourceImage(cfg.SourceImage)
			if err != nil {
				return hordeError{err: err, reason: "Could not read the source image."}
			}
			input.SourceImage = img
			if cfg.Inpaint {
				input.SourceProcessing = horde.ProcessingInpainting
			} else {
				input.SourceProcessing = horde.ProcessingImg2Img
				input.Params.DenoisingStrength = 1 - clamp01(cfg.ImageStrength)
			}
		} else if cfg.Inpaint {
			return hordeError{
				err:    newUserErrorf("inpainting needs a source image"),
				reason: fmt.Sprintf("Pass one with %s.", m.styles.InlineCode.Render("--file")),
			}
		}

		// Fold published per-model constraints into the request so it
		// doesn't get bounced by the workers for an out-of-range value.
		if reqs := loadRequirements(m.ctx, m.client, cfg); reqs != nil {
			if r, ok := reqs[model]; ok {
				r.Apply(&input.Params)
			}
		}

		resp, err := m.client.GenerateAsync(m.ctx, input)
		if err != nil {
			return wrapHordeError(err, cfg)
		}

		warnings := resp.Warnings
		if cfg.Model != "" && len(catalog.Models) > 0 && !catalog.Has(cfg.Model) {
			warnings = append(warnings, horde.Warning{
				Message: fmt.Sprintf("Model %q is not in the current catalog, few workers may serve it.", cfg.Model),
			})
		}

		return submittedMsg{
			id:        resp.ID,
			kudos:     resp.Kudos,
			warnings:  warnings,
			newModels: catalog.New,
			prompt:    prompt,
			input:     input,
		}
	}
}

// awaitCmd polls the job until the horde finishes it.
func (m *Hordeimg) awaitCmd(id string) tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.Await(m.ctx, id, time.Duration(m.Config.MaxWait), func(p horde.Progress) {
			m.mu.Lock()
			m.progress = p
			m.mu.Unlock()
		})
		if err != nil {
			if m.ctx.Err() != nil {
				return nil
			}
			return wrapHordeError(err, m.Config)
		}
		return completedMsg{status: status}
	}
}

// saveCmd downloads the finished images into the output directory.
func (m *Hordeimg) saveCmd(status *horde.Status) tea.Cmd {
	return func() tea.Msg {
		dir := m.Config.Output
		if dir == "" {
			dir = "."
		}
		images, censored, err := saveImages(m.ctx, dir, slugify(m.prompt), status.Generations)
		if err != nil {
			if m.ctx.Err() != nil {
				return nil
			}
			return hordeError{err: err, reason: "Could not save the generated images."}
		}
		return savedMsg{images: images, censored: censored}
	}
}

// cancelJobCmd tells the horde to drop the job so workers stop burning
// kudos on a result nobody wants anymore.
func (m *Hordeimg) cancelJobCmd() tea.Cmd {
	return func() tea.Msg {
		if m.jobID == "" {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
		defer cancel()
		_, _ = m.client.Cancel(ctx, m.jobID)
		return nil
	}
}

func (m *Hordeimg) recordHistory() {
	if m.db == nil || m.Config.NoHistory || len(m.Images) == 0 {
		return
	}
	params, _ := json.Marshal(m.input.Params)
	paths := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		paths = append(paths, img.Path)
	}
	_ = m.db.Save(dbGeneration{
		ID:     newLocalID(),
		Prompt: m.prompt,
		Model:  m.input.Models[0],
		Seed:   m.Images[0].Seed,
		Params: string(params),
		Files:  strings.Join(paths, "\n"),
	})
}

func (m *Hordeimg) statusLine() string {
	m.mu.Lock()
	p := m.progress
	m.mu.Unlock()

	switch p.Phase {
	case horde.PhaseQueued:
		if p.QueuePosition > 0 {
			return m.styles.Comment.Render(fmt.Sprintf(
				" queue position %d, about %s",
				p.QueuePosition,
				p.WaitTime.Round(time.Second),
			))
		}
		if p.WaitTime > 0 {
			return m.styles.Comment.Render(fmt.Sprintf(" about %s", p.WaitTime.Round(time.Second)))
		}
	case horde.PhaseGenerating:
		return m.styles.Comment.Render(" a worker picked it up")
	}
	return ""
}

// Summary renders the outcome of a finished run for stdout.
func (m *Hordeimg) Summary() string {
	var b strings.Builder
	s := stdoutStyles()

	for _, img := range m.Images {
		fmt.Fprintln(&b, s.ImagePath.Render(img.Path))
	}

	if m.Config.Quiet {
		return b.String()
	}

	if m.censored > 0 {
		fmt.Fprintf(&b, "%s %s\n", s.WarnHeader.String(),
			s.Comment.Render(fmt.Sprintf("%s held back as censored, try rewording the prompt.", plural(m.censored, "image"))))
	}
	for _, w := range m.warnings {
		fmt.Fprintf(&b, "%s %s\n", s.WarnHeader.String(), s.Comment.Render(w.Message))
	}
	if len(m.newModels) > 0 {
		fmt.Fprintln(&b, s.Comment.Render("New models on the horde: "+strings.Join(m.newModels, ", ")))
	}
	if m.kudos > 0 {
		fmt.Fprintln(&b, s.Comment.Render(fmt.Sprintf("This run cost %.0f kudos.", m.kudos)))
	}
	if len(m.Images) > 0 {
		fmt.Fprintln(&b, s.Comment.Render(fmt.Sprintf(
			"Reproduce with --model %q --seed %s.",
			m.input.Models[0], m.Images[0].Seed,
		)))
	}

	return b.String()
}

func errorView(e hordeError, s styles) string {
	var b strings.Builder
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, s.ErrPadding.Render(s.ErrorHeader.String(), e.reason))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, s.ErrPadding.Render(s.ErrorDetails.Render(e.Error())))
	if e.link != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, s.ErrPadding.Render(s.Link.Render(e.link)))
	}
	fmt.Fprintln(&b)
	return b.String()
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
