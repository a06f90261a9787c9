package horde

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAwaitDone(t *testing.T) {
	var checks atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate/check/job-1":
			if checks.Add(1) < 3 {
				_, _ = fmt.Fprint(w, `{"done":false,"processing":1,"wait_time":0,"is_possible":true}`)
				return
			}
			_, _ = fmt.Fprint(w, `{"done":true,"finished":1,"is_possible":true}`)
		case "/generate/status/job-1":
			_, _ = fmt.Fprint(w, `{"done":true,"generations":[{"id":"g1","img":"http://example.com/g1.webp","seed":"1977","model":"Deliberate"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	var phases []Phase
	status, err := client.Await(context.Background(), "job-1", time.Minute, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	require.NoError(t, err)
	require.Len(t, status.Generations, 1)
	require.Equal(t, "1977", status.Generations[0].Seed)
	require.NotEmpty(t, phases)
	require.Equal(t, PhaseDone, phases[len(phases)-1])
	require.Contains(t, phases, PhaseGenerating)
}

func TestAwaitTimeout(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"done":false,"processing":1,"wait_time":0,"is_possible":true}`)
	}))

	_, err := client.Await(context.Background(), "job-1", 20*time.Millisecond, nil)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestAwaitNoWorkers(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"done":false,"waiting":1,"is_possible":false}`)
	}))

	_, err := client.Await(context.Background(), "job-1", time.Minute, nil)
	require.ErrorIs(t, err, ErrNoWorkers)
}

func TestAwaitFaulted(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"done":false,"faulted":true,"is_possible":true}`)
	}))

	_, err := client.Await(context.Background(), "job-1", time.Minute, nil)
	require.ErrorIs(t, err, ErrFaulted)
}

func TestAwaitQueueExceedsBudget(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"done":false,"waiting":1,"queue_position":90,"wait_time":3600,"is_possible":true}`)
	}))

	_, err := client.Await(context.Background(), "job-1", time.Second, nil)

	var queueErr *QueueError
	require.ErrorAs(t, err, &queueErr)
	require.Equal(t, time.Hour, queueErr.WaitTime)
}

func TestAwaitContextCancel(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"done":false,"processing":1,"wait_time":0,"is_possible":true}`)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := client.Await(ctx, "job-1", time.Minute, func(Progress) {
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProgressPercent(t *testing.T) {
	require.InDelta(t, 0.0, Progress{}.Percent(), 0.001)
	require.InDelta(t, 50.0, Progress{Elapsed: time.Second, Budget: 2 * time.Second}.Percent(), 0.001)
	require.InDelta(t, 100.0, Progress{Elapsed: time.Hour, Budget: time.Second}.Percent(), 0.001)
}
