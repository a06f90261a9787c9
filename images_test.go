package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fectp/hordeimg/internal/horde"
)

func TestSlugify(t *testing.T) {
	for in, out := range map[string]string{
		"a lighthouse in a storm":   "a-lighthouse-in-a-storm",
		"Cozy Cabin, Winter Night!": "cozy-cabin-winter-night",
		"   ":                       "untitled",
		"":                          "untitled",
		"émoji ☃ prompt":            "moji-prompt",
	} {
		require.Equal(t, out, slugify(in))
	}

	long := slugify(strings.Repeat("very long prompt ", 20))
	require.LessOrEqual(t, len(long), maxSlugLen)
	require.False(t, strings.HasSuffix(long, "-"))
}

func TestReadSourceImage(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "source.png")
		content := []byte("not really a png but close enough")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		encoded, err := readSourceImage(path)
		require.NoError(t, err)

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		require.Equal(t, content, decoded)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := readSourceImage("source.tiff")
		require.ErrorContains(t, err, "unsupported image format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readSourceImage(filepath.Join(t.TempDir(), "nope.png"))
		require.Error(t, err)
	})
}

func TestSaveImages(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("image-bytes"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("downloaded-bytes"))
	}))
	t.Cleanup(srv.Close)

	t.Run("mixed sources", func(t *testing.T) {
		dir := t.TempDir()
		saved, censored, err := saveImages(context.Background(), dir, "fox", []horde.Generation{
			{Seed: "1", Img: encoded, Model: "Deliberate"},
			{Seed: "2", Img: srv.URL + "/img.webp", Model: "Deliberate"},
		})
		require.NoError(t, err)
		require.Zero(t, censored)
		require.Len(t, saved, 2)

		bts, err := os.ReadFile(saved[0].Path)
		require.NoError(t, err)
		require.Equal(t, "image-bytes", string(bts))

		bts, err = os.ReadFile(saved[1].Path)
		require.NoError(t, err)
		require.Equal(t, "downloaded-bytes", string(bts))

		require.Equal(t, filepath.Join(dir, "fox-1-1.webp"), saved[0].Path)
		require.Equal(t, filepath.Join(dir, "fox-2-2.webp"), saved[1].Path)
	})

	t.Run("single image skips the counter", func(t *testing.T) {
		dir := t.TempDir()
		saved, _, err := saveImages(context.Background(), dir, "fox", []horde.Generation{
			{Seed: "1977", Img: encoded},
		})
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "fox-1977.webp"), saved[0].Path)
	})

	t.Run("censored images are counted, not saved", func(t *testing.T) {
		dir := t.TempDir()
		saved, censored, err := saveImages(context.Background(), dir, "fox", []horde.Generation{
			{Seed: "1", Img: encoded},
			{Seed: "2", Img: encoded, Censored: true},
		})
		require.NoError(t, err)
		require.Equal(t, 1, censored)
		require.Len(t, saved, 1)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("bad base64", func(t *testing.T) {
		_, _, err := saveImages(context.Background(), t.TempDir(), "fox", []horde.Generation{
			{Seed: "1", Img: "definitely not base64!!!"},
		})
		require.Error(t, err)
	})

	t.Run("download failure", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(failing.Close)

		_, _, err := saveImages(context.Background(), t.TempDir(), "fox", []horde.Generation{
			{Seed: "1", Img: failing.URL + "/gone.webp"},
		})
		require.ErrorContains(t, err, "404")
	})
}
