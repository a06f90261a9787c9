package main

import (
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const charCyclingFPS = time.Second / 22

var charRunes = []rune("0123456789abcdefABCDEF~!@#$£€%^&*()+=_")

var ellipsisSpinner = spinner.Spinner{
	Frames: []string{"", ".", "..", "..."},
	FPS:    time.Second / 3, //nolint:mnd
}

type charState int

const (
	charInitialState charState = iota
	charCyclingState
	charEndOfLifeState
)

// cyclingChar is a single animated character.
type cyclingChar struct {
	finalValue   rune // if < 0 cycle forever
	currentValue rune
	initialDelay time.Duration
	lifetime     time.Duration
}

func (c cyclingChar) randomRune() rune {
	return charRunes[rand.Intn(len(charRunes))] //nolint:gosec
}

func (c cyclingChar) state(start time.Time) charState {
	now := time.Now()
	if now.Before(start.Add(c.initialDelay)) {
		return charInitialState
	}
	if c.finalValue > 0 && now.After(start.Add(c.initialDelay).Add(c.lifetime)) {
		return charEndOfLifeState
	}
	return charCyclingState
}

type stepCharsMsg struct{}

func stepChars() tea.Cmd {
	return tea.Tick(charCyclingFPS, func(time.Time) tea.Msg {
		return stepCharsMsg{}
	})
}

// anim is the animation that plays while the horde works on the job.
type anim struct {
	start           time.Time
	cyclingChars    []cyclingChar
	labelChars      []cyclingChar
	ramp            []lipgloss.Style
	ellipsis        spinner.Model
	ellipsisStarted bool
}

func newAnim(cyclingCharsSize uint, label string, r *lipgloss.Renderer, s styles) anim {
	n := int(cyclingCharsSize)
	if n > 0 {
		label = " " + label
	}

	c := anim{
		start:    time.Now(),
		ellipsis: spinner.New(spinner.WithSpinner(ellipsisSpinner)),
	}
	c.ellipsis.Style = s.Comment

	// If fanciness calls for it, build a gradient ramp for the prefix.
	if n > 1 {
		c.ramp = make([]lipgloss.Style, n)
		ramp := makeGradientRamp(n)
		for i, color := range ramp {
			c.ramp[i] = r.NewStyle().Foreground(color)
		}
	}

	makeDelay := func(a int32, b time.Duration) time.Duration {
		return time.Duration(rand.Int31n(a)) * (time.Millisecond * b) //nolint:gosec
	}

	makeInitialDelay := func() time.Duration {
		return makeDelay(8, 60) //nolint:mnd
	}

	c.cyclingChars = make([]cyclingChar, n)
	for i := range c.cyclingChars {
		c.cyclingChars[i] = cyclingChar{
			currentValue: '#',
			finalValue:   -1, // cycle forever
			initialDelay: makeInitialDelay(),
		}
	}

	// Zero fanciness degrades to a plain label with a trailing ellipsis.
	labelRunes := []rune(label)
	c.labelChars = make([]cyclingChar, len(labelRunes))
	for i, r := range labelRunes {
		char := cyclingChar{
			currentValue: r,
			finalValue:   r,
		}
		if n > 0 {
			char.currentValue = '#'
			char.initialDelay = makeInitialDelay()
			char.lifetime = makeDelay(5, 180) //nolint:mnd
		}
		c.labelChars[i] = char
	}

	return c
}

// Init initializes the animation.
func (a anim) Init() tea.Cmd {
	return tea.Batch(stepChars(), a.ellipsis.Tick)
}

// Update handles messages.
func (a anim) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepCharsMsg:
		a.updateChars(&a.cyclingChars)
		a.updateChars(&a.labelChars)

		if !a.ellipsisStarted && len(a.labelChars) > 0 {
			var done bool
			for _, c := range a.labelChars {
				done = c.state(a.start) == charEndOfLifeState
				if !done {
					break
				}
			}
			if done {
				a.ellipsisStarted = true
			}
		}

		return a, stepChars()
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.ellipsis, cmd = a.ellipsis.Update(msg)
		return a, cmd
	default:
		return a, nil
	}
}

func (a *anim) updateChars(chars *[]cyclingChar) {
	for i, c := range *chars {
		switch c.state(a.start) {
		case charInitialState:
			(*chars)[i].currentValue = '#'
		case charCyclingState:
			(*chars)[i].currentValue = c.randomRune()
		case charEndOfLifeState:
			(*chars)[i].currentValue = c.finalValue
		}
	}
}

// View renders the animation.
func (a anim) View() string {
	var b strings.Builder

	for i, c := range a.cyclingChars {
		if len(a.ramp) > i {
			b.WriteString(a.ramp[i].Render(string(c.currentValue)))
			continue
		}
		b.WriteRune(c.currentValue)
	}

	for _, c := range a.labelChars {
		b.WriteRune(c.currentValue)
	}

	if a.ellipsisStarted {
		b.WriteString(a.ellipsis.View())
	}

	return b.String()
}
