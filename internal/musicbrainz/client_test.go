//nolint:bodyclose // responses use http.NoBody
package musicbrainz

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// step is one scripted transport answer: a status, or err when set.
type step struct {
	status int
	err    error
}

// scripted replays steps in order and records when each call happened.
func scripted(steps ...step) (*Client, *[]time.Time) {
	var calls []time.Time
	c := &Client{
		interval: rateLimitDur,
		httpClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls = append(calls, time.Now())
			if len(calls) > len(steps) {
				return nil, errors.New("unexpected call")
			}
			s := steps[len(calls)-1]
			if s.err != nil {
				return nil, s.err
			}
			return &http.Response{StatusCode: s.status, Body: http.NoBody}, nil
		})},
	}
	return c, &calls
}

func TestWaitForRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		pause   time.Duration // between the first and the measured call
		minWait time.Duration
		maxWait time.Duration
	}{
		{"back to back", 0, 900 * time.Millisecond, rateLimitDur},
		{"half interval", rateLimitDur / 2, rateLimitDur / 2, rateLimitDur / 2},
		{"after interval", rateLimitDur + 100*time.Millisecond, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				c := &Client{interval: rateLimitDur}
				start := time.Now()
				require.NoError(t, c.waitForRateLimit(context.Background()))
				assert.Equal(t, start, time.Now(), "first call never waits")

				time.Sleep(tt.pause)
				start = time.Now()
				require.NoError(t, c.waitForRateLimit(context.Background()))
				waited := time.Since(start)
				assert.GreaterOrEqual(t, waited, tt.minWait)
				assert.LessOrEqual(t, waited, tt.maxWait)
			})
		})
	}
}

func TestWaitForRateLimit_Spacing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := &Client{interval: rateLimitDur}
		start := time.Now()
		for range 5 {
			require.NoError(t, c.waitForRateLimit(context.Background()))
		}
		assert.Equal(t, 4*rateLimitDur, time.Since(start))
	})
}

func TestWaitForRateLimit_Canceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := &Client{interval: rateLimitDur}
		require.NoError(t, c.waitForRateLimit(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, c.waitForRateLimit(ctx), context.DeadlineExceeded)
	})
}

func TestDoRequestWithRetry(t *testing.T) {
	netErr := errors.New("connection reset")
	tests := []struct {
		name       string
		steps      []step
		wantStatus int
		wantErr    string
	}{
		{"ok", []step{{status: http.StatusOK}}, http.StatusOK, ""},
		{"not found is final", []step{{status: http.StatusNotFound}}, http.StatusNotFound, ""},
		{
			"server errors then ok",
			[]step{{status: http.StatusBadGateway}, {status: http.StatusServiceUnavailable}, {status: http.StatusOK}},
			http.StatusOK, "",
		},
		{"network error then ok", []step{{err: netErr}, {status: http.StatusOK}}, http.StatusOK, ""},
		{
			"gives up",
			[]step{
				{status: http.StatusInternalServerError}, {status: http.StatusInternalServerError},
				{status: http.StatusInternalServerError}, {status: http.StatusInternalServerError},
			},
			0, "request failed after 4 retries: server returned status 500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				c, calls := scripted(tt.steps...)
				req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://mb.test", http.NoBody)
				require.NoError(t, err)

				resp, err := c.doRequestWithRetry(req)
				assert.Len(t, *calls, len(tt.steps))
				if tt.wantErr != "" {
					assert.EqualError(t, err, tt.wantErr)
					assert.Nil(t, resp)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, resp.StatusCode)
			})
		})
	}
}

func TestDoRequestWithRetry_Backoff(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, calls := scripted(
			step{status: http.StatusInternalServerError},
			step{status: http.StatusInternalServerError},
			step{status: http.StatusInternalServerError},
			step{status: http.StatusInternalServerError},
		)
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://mb.test", http.NoBody)
		require.NoError(t, err)
		_, err = c.doRequestWithRetry(req)
		require.Error(t, err)

		require.Len(t, *calls, 4)
		for i, want := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
			assert.Equal(t, want, (*calls)[i+1].Sub((*calls)[i]), "delay before retry %d", i+1)
		}
	})
}

func TestDoRequestWithRetry_StopsOnCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, calls := scripted(step{status: http.StatusInternalServerError}, step{status: http.StatusOK})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://mb.test", http.NoBody)
		require.NoError(t, err)

		resp, err := c.doRequestWithRetry(req)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, resp)
		assert.Len(t, *calls, 1)
	})
}
