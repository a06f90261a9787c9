package main

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fectp/hordeimg/internal/horde"
)

func TestWrapHordeError(t *testing.T) {
	anon := &Config{APIKeyEnv: "HORDEIMG_TEST_NO_KEY"}

	t.Run("kudos upfront for anonymous points at registration", func(t *testing.T) {
		err := wrapHordeError(&horde.Error{
			StatusCode: http.StatusForbidden,
			Message:    "Not enough kudos",
			RC:         horde.RCKudosUpfront,
		}, anon)
		require.Contains(t, err.Reason(), "Register")
		require.Equal(t, horde.RegisterURL, err.link)
	})

	t.Run("kudos upfront for registered users", func(t *testing.T) {
		t.Setenv("HORDEIMG_TEST_KEY", "real-key")
		cfg := &Config{APIKeyEnv: "HORDEIMG_TEST_KEY"}
		err := wrapHordeError(&horde.Error{RC: horde.RCKudosUpfront}, cfg)
		require.Contains(t, err.Reason(), "kudos")
		require.Equal(t, horde.HelpURL, err.link)
	})

	t.Run("unauthorized blames the key", func(t *testing.T) {
		err := wrapHordeError(&horde.Error{StatusCode: http.StatusUnauthorized}, anon)
		require.Contains(t, err.Reason(), "rejected")
		require.Equal(t, horde.RegisterURL, err.link)
	})

	t.Run("temporary server trouble", func(t *testing.T) {
		err := wrapHordeError(&horde.Error{StatusCode: http.StatusBadGateway}, anon)
		require.Contains(t, err.Reason(), "try again")
	})

	t.Run("timeout suggests raising the budget", func(t *testing.T) {
		err := wrapHordeError(fmt.Errorf("%w after 3m", horde.ErrTimeout), anon)
		require.Contains(t, err.Reason(), "max-wait")
	})

	t.Run("no workers suggests another model", func(t *testing.T) {
		err := wrapHordeError(horde.ErrNoWorkers, anon)
		require.Contains(t, err.Reason(), "model")
	})

	t.Run("queue error for anonymous points at registration", func(t *testing.T) {
		err := wrapHordeError(&horde.QueueError{WaitTime: time.Hour}, anon)
		require.Contains(t, err.Reason(), "Registered users get priority")
		require.Equal(t, horde.RegisterURL, err.link)
	})

	t.Run("faulted", func(t *testing.T) {
		err := wrapHordeError(horde.ErrFaulted, anon)
		require.Contains(t, err.Reason(), "gave up")
	})

	t.Run("anything else", func(t *testing.T) {
		err := wrapHordeError(fmt.Errorf("boom"), anon)
		require.Contains(t, err.Reason(), "problem")
	})
}
