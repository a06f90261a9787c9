package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"text/template"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/duration"
	"github.com/caarlos0/env/v9"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var help = map[string]string{
	"model":          "Model to generate with (see --list-models).",
	"width":          "Image width in pixels; snapped down to a multiple of 64.",
	"height":         "Image height in pixels; snapped down to a multiple of 64.",
	"steps":          "Sampling steps; at least double the cfg scale is a good start.",
	"cfg-scale":      "How strongly the worker follows the prompt vs its own creativity.",
	"seed":           "Seed for reproducible output, random when empty.",
	"count":          "Number of images to generate.",
	"nsfw":           "Mark the request as NSFW; only opted-in workers will serve it.",
	"censor-nsfw":    "Have workers censor unexpected NSFW results.",
	"max-wait":       "How long to wait for the generation before giving up.",
	"file":           "Source image to start from (img2img).",
	"image-strength": "How much of the source image survives, 0.0 to 1.0.",
	"inpaint":        "Inpaint the source image instead of transforming it.",
	"output":         "Directory where generated images are saved.",
	"api-key-env":    "Environment variable holding your AIHorde API key.",
	"cache-path":     "Where the model catalog and history are kept.",
	"list-models":    "List the most used models on the horde and exit.",
	"balance":        "Show the kudos balance for your API key and exit.",
	"list":           "List past generations.",
	"show":           "Print the settings of a past generation by ID or prompt.",
	"delete":         "Delete a past generation from the history by ID or prompt.",
	"no-cache":       "Skip the local model catalog cache.",
	"no-history":     "Do not record this generation in the history.",
	"quiet":          "Quiet mode (hide the progress animation).",
	"fanciness":      "Your desired level of fanciness.",
	"status-text":    "Text to show while the horde works.",
	"settings":       "Open settings in your $EDITOR.",
	"reset-settings": "Backup your old settings file and reset everything to the defaults.",
	"version":        "Show version and exit.",
	"help":           "Show help and exit.",
}

// Duration is a time.Duration that unmarshals from humanized strings
// like "3m" or "1h30m" in both YAML and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := duration.Parse(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds the main configuration and is mapped to the YAML settings file.
type Config struct {
	Model      string   `yaml:"model" env:"MODEL"`
	Width      int      `yaml:"width" env:"WIDTH"`
	Height     int      `yaml:"height" env:"HEIGHT"`
	Steps      int      `yaml:"steps" env:"STEPS"`
	CfgScale   float64  `yaml:"cfg-scale" env:"CFG_SCALE"`
	Count      int      `yaml:"count" env:"COUNT"`
	NSFW       bool     `yaml:"nsfw" env:"NSFW"`
	CensorNSFW bool     `yaml:"censor-nsfw" env:"CENSOR_NSFW"`
	MaxWait    Duration `yaml:"max-wait" env:"MAX_WAIT"`
	Output     string   `yaml:"output" env:"OUTPUT"`
	APIKeyEnv  string   `yaml:"api-key-env" env:"API_KEY_ENV"`
	CachePath  string   `yaml:"cache-path" env:"CACHE_PATH"`
	Fanciness  uint     `yaml:"fanciness" env:"FANCINESS"`
	StatusText string   `yaml:"status-text" env:"STATUS_TEXT"`
	Quiet      bool     `yaml:"quiet" env:"QUIET"`
	NoCache    bool     `yaml:"no-cache" env:"NO_CACHE"`
	NoHistory  bool     `yaml:"no-history" env:"NO_HISTORY"`

	Prompt        string
	Seed          string
	SourceImage   string
	ImageStrength float64
	Inpaint       bool
	ListModels    bool
	Balance       bool
	List          bool
	Show          string
	Delete        string
	Settings      bool
	ResetSettings bool
	Version       bool
	SettingsPath  string
}

// APIKey resolves the AIHorde API key from the configured environment
// variable. Empty means anonymous.
func (c Config) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func ensureConfig() (Config, error) {
	var c Config
	sp, err := xdg.ConfigFile(filepath.Join("hordeimg", "hordeimg.yml"))
	if err != nil {
		return c, hordeError{err: err, reason: "Could not find settings path."}
	}
	c.SettingsPath = sp

	dir := filepath.Dir(sp)
	if dirErr := os.MkdirAll(dir, 0o700); dirErr != nil { //nolint:mnd
		return c, hordeError{err: dirErr, reason: "Could not create settings directory."}
	}

	if dirErr := writeConfigFile(sp); dirErr != nil {
		return c, dirErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, hordeError{err: err, reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, hordeError{err: err, reason: "Could not parse settings file."}
	}

	if err := env.ParseWithOptions(&c, env.Options{
		Prefix: "HORDEIMG_",
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(Duration(0)): func(v string) (any, error) {
				d, err := duration.Parse(v)
				return Duration(d), err //nolint:wrapcheck
			},
		},
	}); err != nil {
		return c, hordeError{err: err, reason: "Could not parse environment into settings file."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(xdg.DataHome, "hordeimg")
	}
	if err := os.MkdirAll(c.CachePath, 0o700); err != nil { //nolint:mnd
		return c, hordeError{err: err, reason: "Could not create cache directory."}
	}

	return c, nil
}

func writeConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return hordeError{err: err, reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return hordeError{err: err, reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct {
		Help map[string]string
	}{
		Help: help,
	}
	if err := tmpl.Execute(f, m); err != nil {
		return hordeError{err: err, reason: "Could not render template."}
	}
	return nil
}

func resetSettings(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		return hordeError{err: err, reason: "Couldn't read config file."}
	}
	inputFile, err := os.Open(path)
	if err != nil {
		return hordeError{err: err, reason: "Couldn't open config file."}
	}
	defer inputFile.Close() //nolint:errcheck

	backup, err := os.Create(path + ".bak")
	if err != nil {
		return hordeError{err: err, reason: "Couldn't backup config file."}
	}
	defer backup.Close() //nolint:errcheck

	if _, err := backup.ReadFrom(inputFile); err != nil {
		return hordeError{err: err, reason: "Couldn't write backup config file."}
	}
	if err := os.Remove(path); err != nil {
		return hordeError{err: err, reason: "Couldn't remove config file."}
	}
	return createConfigFile(path)
}

func useLine() string {
	appName := filepath.Base(os.Args[0])

	if stdoutRenderer().ColorProfile() == termenv.TrueColor {
		appName = makeGradientText(stdoutStyles().AppName, appName)
	}

	return fmt.Sprintf(
		"%s %s",
		appName,
		stdoutStyles().CliArgs.Render("[OPTIONS] [PROMPT]"),
	)
}

func usageFunc(cmd *cobra.Command) error {
	fmt.Printf("AIHorde image generation on the command line.\n\n")
	fmt.Printf(
		"Usage:\n  %s\n\n",
		useLine(),
	)
	fmt.Println("Options:")
	cmd.Flags().VisitAll(func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand == "" {
			fmt.Printf(
				"  %-44s %s\n",
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		} else {
			fmt.Printf(
				"  %s%s %-40s %s\n",
				stdoutStyles().Flag.Render("-"+f.Shorthand),
				stdoutStyles().FlagComma,
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		}
	})
	desc, example := randomExample()
	fmt.Printf(
		"\nExample:\n  %s\n  %s\n",
		stdoutStyles().Comment.Render("# "+desc),
		cheapHighlighting(stdoutStyles(), example),
	)

	return nil
}
