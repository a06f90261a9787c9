package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	const content = "a lighthouse in a storm"

	t.Run("literal", func(t *testing.T) {
		msg, err := loadPrompt(content)
		require.NoError(t, err)
		require.Equal(t, content, msg)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		msg, err := loadPrompt("file://" + path)
		require.NoError(t, err)
		require.Equal(t, content, msg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadPrompt("file://" + filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
	})

	t.Run("http url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(content))
		}))
		t.Cleanup(srv.Close)

		msg, err := loadPrompt(srv.URL)
		require.NoError(t, err)
		require.Equal(t, content, msg)
	})
}
