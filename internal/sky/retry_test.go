package sky

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	calls    int
	failures int
	err      error
	onCall   func()
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Background(ctx context.Context, band Band, q Query) (Background, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.calls <= f.failures {
		return Background{}, f.err
	}
	return Background{PhotonRate: 42, Source: f.Name()}, nil
}

var transient = fmt.Errorf("%w: connection reset", ErrUnavailable)

func TestRetryingRecovers(t *testing.T) {
	src := &flakySource{failures: 2, err: transient}
	r := NewRetrying(src, 3, time.Millisecond, testLogger)

	bg, err := r.Background(context.Background(), ks, Query{Airmass: 1})
	require.NoError(t, err)
	assert.Equal(t, 42.0, bg.PhotonRate)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, "flaky", r.Name())
}

func TestRetryingGivesUp(t *testing.T) {
	src := &flakySource{failures: 100, err: transient}
	r := NewRetrying(src, 3, time.Millisecond, testLogger)

	_, err := r.Background(context.Background(), ks, Query{Airmass: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, src.calls)
}

func TestRetryingSingleTry(t *testing.T) {
	src := &flakySource{failures: 1, err: transient}
	r := NewRetrying(src, 0, time.Millisecond, testLogger)

	_, err := r.Background(context.Background(), ks, Query{Airmass: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, src.calls)
}

func TestRetryingPermanentErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int
	}{
		{"no data", fmt.Errorf("%w: filter Z", ErrNoData), 1},
		{"bad request", &StatusError{Code: http.StatusBadRequest, URL: "x"}, 1},
		{"invalid response", fmt.Errorf("%w: sky spectrum has 1 samples", ErrInvalidResponse), 1},
		{"invalid query", fmt.Errorf("%w: Query.Airmass", ErrInvalidQuery), 1},
		{"run failed", &ServiceError{Status: "fail", Message: "bad wmin"}, 1},
		{"server error", &StatusError{Code: http.StatusBadGateway, URL: "x"}, 4},
		{"rate limited", &StatusError{Code: http.StatusTooManyRequests, URL: "x"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &flakySource{failures: 100, err: tt.err}
			r := NewRetrying(src, 4, time.Millisecond, testLogger)

			_, err := r.Background(context.Background(), ks, Query{Airmass: 1})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.calls, src.calls)
		})
	}
}

func TestRetryingNilLogger(t *testing.T) {
	src := &flakySource{failures: 1, err: transient}
	r := NewRetrying(src, 2, time.Millisecond, nil)

	_, err := r.Background(context.Background(), ks, Query{Airmass: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestRetryingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &flakySource{failures: 100, err: transient, onCall: cancel}
	r := NewRetrying(src, 5, time.Hour, testLogger)

	_, err := r.Background(ctx, ks, Query{Airmass: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, src.calls)
}
