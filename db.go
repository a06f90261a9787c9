package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

var (
	errNoMatches = errors.New("no generations matched the given input")
	errInvalidID = errors.New("invalid id")
)

func openDB(ds string) (*genDB, error) {
	db, err := sqlx.Open("sqlite", ds)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping db: %w", err)
	}
	if _, err := db.Exec(`
		create table if not exists generations(
			id string not null primary key,
			prompt string not null,
			model string not null,
			seed string not null default '',
			params string not null default '',
			files string not null default '',
			created_at datetime not null default current_timestamp
		)
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}
	return &genDB{db: db}, nil
}

func openDBAt(dir string) (*genDB, error) {
	return openDB("file:" + filepath.Join(dir, "history.sqlite"))
}

// genDB is the local index of past generations.
type genDB struct {
	db *sqlx.DB
}

type dbGeneration struct {
	ID        string    `db:"id"`
	Prompt    string    `db:"prompt"`
	Model     string    `db:"model"`
	Seed      string    `db:"seed"`
	Params    string    `db:"params"`
	Files     string    `db:"files"`
	CreatedAt time.Time `db:"created_at"`
}

// FilePaths splits the stored newline-separated image paths.
func (g dbGeneration) FilePaths() []string {
	if g.Files == "" {
		return nil
	}
	return strings.Split(g.Files, "\n")
}

func (c *genDB) Close() error {
	return c.db.Close() //nolint:wrapcheck
}

func (c *genDB) Save(g dbGeneration) error {
	if g.ID == "" {
		return fmt.Errorf("save: %w", errInvalidID)
	}
	if g.Prompt == "" {
		return errors.New("save: missing prompt")
	}
	if _, err := c.db.Exec(`
		insert into generations (id, prompt, model, seed, params, files)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (id) do update
		set prompt = $2, model = $3, seed = $4, params = $5, files = $6
	`, g.ID, g.Prompt, g.Model, g.Seed, g.Params, g.Files); err != nil {
		return fmt.Errorf("could not save generation: %w", err)
	}
	return nil
}

func (c *genDB) Delete(id string) error {
	if _, err := c.db.Exec(`delete from generations where id = $1`, id); err != nil {
		return fmt.Errorf("could not delete generation: %w", err)
	}
	return nil
}

// Find locates a single generation by ID prefix or exact prompt. Short
// inputs only match prompts, so a 3-letter prompt doesn't get shadowed
// by hex prefixes.
func (c *genDB) Find(in string) (*dbGeneration, error) {
	var gens []dbGeneration
	q := `select * from generations where id like $1 or prompt = $2`
	args := []any{in + "%", in}
	if len(in) < genIDMinLen {
		q = `select * from generations where prompt = $1`
		args = []any{in}
	}
	if err := c.db.Select(&gens, q, args...); err != nil {
		return nil, fmt.Errorf("could not find generation: %w", err)
	}
	if len(gens) > 1 {
		ids := make([]string, 0, len(gens))
		for _, g := range gens {
			ids = append(ids, g.ID[:genIDShort])
		}
		return nil, fmt.Errorf("multiple generations matched %q: %s", in, strings.Join(ids, ", "))
	}
	if len(gens) == 1 {
		return &gens[0], nil
	}
	return nil, errNoMatches
}

// FindHEAD returns the most recent generation.
func (c *genDB) FindHEAD() (*dbGeneration, error) {
	var g dbGeneration
	if err := c.db.Get(&g, `select * from generations order by created_at desc limit 1`); err != nil {
		return nil, fmt.Errorf("could not find last generation: %w", err)
	}
	return &g, nil
}

func (c *genDB) List() ([]dbGeneration, error) {
	var gens []dbGeneration
	if err := c.db.Select(&gens, `select * from generations order by created_at desc`); err != nil {
		return gens, fmt.Errorf("could not list generations: %w", err)
	}
	return gens, nil
}
