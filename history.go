package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	timeago "github.com/caarlos0/timea.go"
)

const maxPromptWidth = 72

// listHistory prints every saved generation, newest first.
func listHistory(db *genDB) error {
	gens, err := db.List()
	if err != nil {
		return fmt.Errorf("couldn't list the generation history: %w", err)
	}
	if len(gens) == 0 {
		return errors.New("no generations found")
	}
	s := stdoutStyles()
	for _, g := range gens {
		fmt.Printf(
			"%s %s %s\n",
			s.InlineCode.Render(g.ID[:genIDShort]),
			truncatePrompt(g.Prompt),
			s.Timeago.Render(timeago.Of(g.CreatedAt)),
		)
	}
	return nil
}

// showGeneration prints a single generation, found by ID prefix or exact
// prompt, so its images can be reproduced or located again.
func showGeneration(db *genDB, in string) error {
	g, err := findGeneration(db, in)
	if err != nil {
		return err
	}
	s := stdoutStyles()
	fmt.Printf("%s %s\n", s.Comment.Render("prompt:"), g.Prompt)
	fmt.Printf("%s %s\n", s.Comment.Render("model: "), g.Model)
	if g.Seed != "" {
		fmt.Printf("%s %s\n", s.Comment.Render("seed:  "), g.Seed)
	}
	if g.Params != "" {
		fmt.Printf("%s %s\n", s.Comment.Render("params:"), g.Params)
	}
	fmt.Printf("%s %s\n", s.Comment.Render("when:  "), timeago.Of(g.CreatedAt))
	for _, p := range g.FilePaths() {
		fmt.Println(s.ImagePath.Render(p))
	}
	return nil
}

// deleteGeneration removes a generation from the history. The image files
// on disk stay where they are.
func deleteGeneration(db *genDB, in string) error {
	g, err := findGeneration(db, in)
	if err != nil {
		return err
	}
	if err := db.Delete(g.ID); err != nil {
		return fmt.Errorf("couldn't delete generation %s: %w", g.ID[:genIDShort], err)
	}
	fmt.Fprintln(os.Stderr, "Generation deleted:", g.ID[:genIDShort])
	return nil
}

func findGeneration(db *genDB, in string) (*dbGeneration, error) {
	g, err := db.Find(in)
	if err != nil {
		if errors.Is(err, errNoMatches) {
			return nil, newUserErrorf("no generation found matching %q", in)
		}
		return nil, err
	}
	return g, nil
}

func truncatePrompt(p string) string {
	p = strings.ReplaceAll(p, "\n", " ")
	if r := []rune(p); len(r) > maxPromptWidth {
		return string(r[:maxPromptWidth-1]) + "…"
	}
	return p
}
