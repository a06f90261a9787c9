package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/editor"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"

	"github.com/fectp/hordeimg/internal/horde"
)

// Build vars.
var (
	//nolint:gochecknoglobals
	version = "dev"
	commit  = ""
)

var config Config //nolint:gochecknoglobals

var (
	rootCmd = &cobra.Command{
		Use:           "hordeimg",
		Short:         "Generate images with the AIHorde from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Prompt = strings.Join(args, " ")

			switch {
			case config.Version:
				fmt.Println(buildVersion())
				return nil
			case config.Settings:
				return editSettings()
			case config.ResetSettings:
				if err := resetSettings(config.SettingsPath); err != nil {
					return err
				}
				if !config.Quiet {
					fmt.Fprintln(os.Stderr, "Settings restored to defaults. Backup saved to:", config.SettingsPath+".bak")
				}
				return nil
			case config.List:
				return withDB(listHistory)
			case config.Show != "":
				return withDB(func(db *genDB) error {
					return showGeneration(db, config.Show)
				})
			case config.Delete != "":
				return withDB(func(db *genDB) error {
					return deleteGeneration(db, config.Delete)
				})
			case config.ListModels:
				return listModels(cmd.Context(), newHordeClient(), &config)
			case config.Balance:
				return showBalance(cmd.Context())
			default:
				return generate(cmd.Context())
			}
		},
	}

	manCmd = &cobra.Command{
		Use:    "man",
		Args:   cobra.NoArgs,
		Short:  "Generates man pages",
		Hidden: true,
		RunE: func(*cobra.Command, []string) error {
			manPage, err := mcobra.NewManPage(1, rootCmd) //nolint:mnd
			if err != nil {
				return fmt.Errorf("could not generate man pages: %w", err)
			}
			fmt.Println(manPage.Build(roff.NewDocument()))
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(manCmd)
	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})
}

func initFlags() {
	flags := rootCmd.Flags()
	flags.SortFlags = false

	flags.StringVarP(&config.Model, "model", "m", config.Model, stdoutStyles().FlagDesc.Render(help["model"]))
	flags.IntVar(&config.Width, "width", config.Width, stdoutStyles().FlagDesc.Render(help["width"]))
	flags.IntVar(&config.Height, "height", config.Height, stdoutStyles().FlagDesc.Render(help["height"]))
	flags.IntVar(&config.Steps, "steps", config.Steps, stdoutStyles().FlagDesc.Render(help["steps"]))
	flags.Float64Var(&config.CfgScale, "cfg-scale", config.CfgScale, stdoutStyles().FlagDesc.Render(help["cfg-scale"]))
	flags.StringVar(&config.Seed, "seed", "", stdoutStyles().FlagDesc.Render(help["seed"]))
	flags.IntVarP(&config.Count, "count", "n", config.Count, stdoutStyles().FlagDesc.Render(help["count"]))
	flags.BoolVar(&config.NSFW, "nsfw", config.NSFW, stdoutStyles().FlagDesc.Render(help["nsfw"]))
	flags.BoolVar(&config.CensorNSFW, "censor-nsfw", config.CensorNSFW, stdoutStyles().FlagDesc.Render(help["censor-nsfw"]))
	flags.Var(
		newDurationFlag(time.Duration(config.MaxWait), (*time.Duration)(&config.MaxWait)),
		"max-wait",
		stdoutStyles().FlagDesc.Render(help["max-wait"]),
	)
	flags.StringVarP(&config.SourceImage, "file", "f", "", stdoutStyles().FlagDesc.Render(help["file"]))
	flags.Float64Var(&config.ImageStrength, "image-strength", defaultImageStrength, stdoutStyles().FlagDesc.Render(help["image-strength"]))
	flags.BoolVar(&config.Inpaint, "inpaint", false, stdoutStyles().FlagDesc.Render(help["inpaint"]))
	flags.StringVarP(&config.Output, "output", "o", config.Output, stdoutStyles().FlagDesc.Render(help["output"]))
	flags.StringVar(&config.APIKeyEnv, "api-key-env", config.APIKeyEnv, stdoutStyles().FlagDesc.Render(help["api-key-env"]))
	flags.StringVar(&config.CachePath, "cache-path", config.CachePath, stdoutStyles().FlagDesc.Render(help["cache-path"]))
	flags.BoolVar(&config.ListModels, "list-models", false, stdoutStyles().FlagDesc.Render(help["list-models"]))
	flags.BoolVar(&config.Balance, "balance", false, stdoutStyles().FlagDesc.Render(help["balance"]))
	flags.BoolVarP(&config.List, "list", "l", false, stdoutStyles().FlagDesc.Render(help["list"]))
	flags.StringVarP(&config.Show, "show", "s", "", stdoutStyles().FlagDesc.Render(help["show"]))
	flags.StringVar(&config.Delete, "delete", "", stdoutStyles().FlagDesc.Render(help["delete"]))
	flags.BoolVar(&config.NoCache, "no-cache", config.NoCache, stdoutStyles().FlagDesc.Render(help["no-cache"]))
	flags.BoolVar(&config.NoHistory, "no-history", config.NoHistory, stdoutStyles().FlagDesc.Render(help["no-history"]))
	flags.BoolVarP(&config.Quiet, "quiet", "q", config.Quiet, stdoutStyles().FlagDesc.Render(help["quiet"]))
	flags.UintVar(&config.Fanciness, "fanciness", config.Fanciness, stdoutStyles().FlagDesc.Render(help["fanciness"]))
	flags.StringVar(&config.StatusText, "status-text", config.StatusText, stdoutStyles().FlagDesc.Render(help["status-text"]))
	flags.BoolVar(&config.Settings, "settings", false, stdoutStyles().FlagDesc.Render(help["settings"]))
	flags.BoolVar(&config.ResetSettings, "reset-settings", false, stdoutStyles().FlagDesc.Render(help["reset-settings"]))
	flags.BoolVarP(&config.Version, "version", "v", false, stdoutStyles().FlagDesc.Render(help["version"]))
}

const defaultImageStrength = 0.3

func main() {
	if !isCompletionCmd(os.Args) && !isManCmd(os.Args) {
		var err error
		config, err = ensureConfig()
		if err != nil {
			handleError(err)
			os.Exit(1)
		}
	}
	initFlags()

	if err := rootCmd.Execute(); err != nil {
		handleError(err)
		os.Exit(1)
	}
}

// generate runs a full generation through the Bubble Tea program.
func generate(ctx context.Context) error {
	if !isInputTTY() {
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			return hordeError{err: err, reason: "Unable to read stdin."}
		}
		config.Prompt = strings.TrimSpace(config.Prompt + "\n" + string(in))
	}
	if strings.TrimSpace(config.Prompt) == "" {
		return hordeError{
			err:    newUserErrorf("missing prompt"),
			reason: "Give the horde something to paint, either as an argument or on stdin.",
		}
	}

	// History is best effort, a broken db never blocks a generation.
	db, err := openDBAt(config.CachePath)
	if err != nil {
		db = nil
	} else {
		defer db.Close() //nolint:errcheck
	}

	opts := []tea.ProgramOption{tea.WithOutput(stderrRenderer().Output())}
	if !isInputTTY() {
		opts = append(opts, tea.WithInput(nil))
	}

	m := newHordeimg(stderrRenderer(), &config, newHordeClient(), db)
	p := tea.NewProgram(m, opts...)
	result, err := p.Run()
	if err != nil {
		return hordeError{err: err, reason: "Couldn't start the program."}
	}

	h := result.(*Hordeimg) //nolint:forcetypeassert
	if h.Error != nil {
		return *h.Error
	}
	if h.Canceled {
		os.Exit(130) //nolint:mnd
	}

	fmt.Print(h.Summary())
	maybeUpdateHint(ctx)
	return nil
}

func showBalance(ctx context.Context) error {
	client := newHordeClient()
	if client.Anonymous() {
		return hordeError{
			err:    newUserErrorf("anonymous users have no kudos balance"),
			reason: fmt.Sprintf("Register a key and export it as %s.", stderrStyles().InlineCode.Render("$"+config.APIKeyEnv)),
			link:   horde.RegisterURL,
		}
	}
	user, err := client.FindUser(ctx)
	if err != nil {
		return wrapHordeError(err, &config)
	}
	s := stdoutStyles()
	fmt.Printf("%s %s\n", s.Comment.Render("user: "), user.Username)
	fmt.Printf("%s %.0f\n", s.Comment.Render("kudos:"), user.Kudos)
	if user.Trusted {
		fmt.Println(s.Comment.Render("This account is trusted."))
	}
	return nil
}

func editSettings() error {
	c, err := editor.Cmd("hordeimg", config.SettingsPath)
	if err != nil {
		return hordeError{err: err, reason: "Could not edit your settings file."}
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return hordeError{err: err, reason: "Could not edit your settings file."}
	}
	if !config.Quiet {
		fmt.Fprintln(os.Stderr, "Wrote config file to:", config.SettingsPath)
	}
	return nil
}

func withDB(fn func(*genDB) error) error {
	db, err := openDBAt(config.CachePath)
	if err != nil {
		return hordeError{err: err, reason: "Could not open the generation history."}
	}
	defer db.Close() //nolint:errcheck
	return fn(db)
}

func newHordeClient() *horde.Client {
	key := config.APIKey()
	if key == "" {
		key = horde.AnonymousKey
	}
	agent := fmt.Sprintf("hordeimg:%s:github.com/fectp/hordeimg", version)
	return horde.New(horde.DefaultConfig(key, agent))
}

func maybeUpdateHint(ctx context.Context) {
	if config.Quiet || !isOutputTTY() {
		return
	}
	info, ok := checkForUpdate(ctx, config.CachePath, version)
	if !ok {
		return
	}
	s := stderrStyles()
	fmt.Fprintln(os.Stderr, s.Comment.Render(fmt.Sprintf("hordeimg %s is available (you run %s).", info.Version, version)))
	if info.Message != "" {
		fmt.Fprintln(os.Stderr, s.Comment.Render(info.Message))
	}
	if info.URL != "" {
		fmt.Fprintln(os.Stderr, s.Link.Render(info.URL))
	}
}

func handleError(err error) {
	s := stderrStyles()

	var flagErr flagParseError
	if errors.As(err, &flagErr) {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr,
			s.ErrPadding.Render(s.ErrorHeader.String(), fmt.Sprintf(flagErr.ReasonFormat(), s.InlineCode.Render(flagErr.Flag()))),
		)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, s.ErrPadding.Render(s.ErrorDetails.Render("Check the usage with "+s.InlineCode.Render("hordeimg --help")+".")))
		fmt.Fprintln(os.Stderr)
		return
	}

	var he hordeError
	if errors.As(err, &he) {
		fmt.Fprint(os.Stderr, errorView(he, s))
		return
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, s.ErrPadding.Render(s.ErrorHeader.String(), err.Error()))
	fmt.Fprintln(os.Stderr)
}

func buildVersion() string {
	out := "hordeimg version " + version
	if commit != "" {
		out += " (" + commit + ")"
	}
	return out
}

func isCompletionCmd(args []string) bool {
	if len(args) < 2 { //nolint:mnd
		return false
	}
	if args[1] == "__complete" {
		return true
	}
	if args[1] != "completion" || len(args) < 3 { //nolint:mnd
		return false
	}
	switch args[2] {
	case "bash", "zsh", "fish", "powershell", "help", "-h", "--help":
		return len(args) == 3 || //nolint:mnd
			(len(args) == 4 && (args[3] == "-h" || args[3] == "--help")) //nolint:mnd
	}
	return false
}

func isManCmd(args []string) bool {
	if len(args) != 2 && len(args) != 3 { //nolint:mnd
		return false
	}
	if args[1] != "man" {
		return false
	}
	if len(args) == 3 && args[2] != "-h" && args[2] != "--help" { //nolint:mnd
		return false
	}
	return true
}
