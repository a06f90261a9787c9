package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDB(tb testing.TB) *genDB {
	db, err := openDB(":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, db.Close())
	})
	return db
}

func TestGenDB(t *testing.T) {
	const testid = "df31ae23ab8b75b5643c2f846c570997edc71333"

	t.Run("list-empty", func(t *testing.T) {
		db := testDB(t)
		list, err := db.List()
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("save", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{
			ID:     testid,
			Prompt: "a fox in a suit",
			Model:  "Deliberate",
			Seed:   "1977",
			Files:  "fox.webp",
		}))

		g, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, testid, g.ID)
		require.Equal(t, "a fox in a suit", g.Prompt)
		require.Equal(t, []string{"fox.webp"}, g.FilePaths())

		list, err := db.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("save no id", func(t *testing.T) {
		db := testDB(t)
		require.Error(t, db.Save(dbGeneration{Prompt: "a fox"}))
	})

	t.Run("save no prompt", func(t *testing.T) {
		db := testDB(t)
		require.Error(t, db.Save(dbGeneration{ID: newLocalID()}))
	})

	t.Run("update", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "take 1"}))
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "take 2"}))

		g, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, "take 2", g.Prompt)

		list, err := db.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("find head", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: newLocalID(), Prompt: "older"}))
		time.Sleep(1100 * time.Millisecond)
		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "newer"}))

		head, err := db.FindHEAD()
		require.NoError(t, err)
		require.Equal(t, testid, head.ID)
	})

	t.Run("find by exact prompt", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "cat"}))

		g, err := db.Find("cat")
		require.NoError(t, err)
		require.Equal(t, testid, g.ID)
	})

	t.Run("short input never matches id prefixes", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "something"}))

		_, err := db.Find("df3")
		require.ErrorIs(t, err, errNoMatches)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: "df31ae23ab8b75b5643c2f846c570997edc71331", Prompt: "one"}))
		require.NoError(t, db.Save(dbGeneration{ID: "df31ae23ab8b75b5643c2f846c570997edc71332", Prompt: "two"}))

		_, err := db.Find("df31")
		require.Error(t, err)
		require.Contains(t, err.Error(), "multiple generations")
	})

	t.Run("no matches", func(t *testing.T) {
		db := testDB(t)
		_, err := db.Find("ffff")
		require.ErrorIs(t, err, errNoMatches)
	})

	t.Run("delete", func(t *testing.T) {
		db := testDB(t)

		require.NoError(t, db.Save(dbGeneration{ID: testid, Prompt: "gone soon"}))
		require.NoError(t, db.Delete(testid))

		_, err := db.Find("df31")
		require.ErrorIs(t, err, errNoMatches)
	})
}

func TestFilePaths(t *testing.T) {
	require.Nil(t, dbGeneration{}.FilePaths())
	require.Equal(t,
		[]string{"a.webp", "b.webp"},
		dbGeneration{Files: "a.webp\nb.webp"}.FilePaths(),
	)
}
