package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alia5/featurec/apiclient"
	"github.com/Alia5/featurec/apitypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const temperature = "org.example/test/Thermostat/v1/Property/Temperature"

// subscriber serves subscriptions from a channel of values and counts how
// many were started.
type subscriber struct {
	started atomic.Int32
	values  chan string
	ended   chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{values: make(chan string, 16), ended: make(chan struct{}, 16)}
}

func (s *subscriber) transport() apiclient.Transport {
	return apiclient.NewMockTransport(func(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error) {
		if path != "subscribe/"+temperature {
			return nil, errors.New("unexpected path " + path)
		}
		s.started.Add(1)
		defer func() { s.ended <- struct{}{} }()
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case v := <-s.values:
				emit(json.RawMessage(v))
			}
		}
	})
}

func TestObservablePropertySingleSubscription(t *testing.T) {
	s := newSubscriber()
	p := apiclient.NewObservableProperty(s.transport(), temperature, func(v float64) float64 { return v })
	defer p.Close()

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]float64, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := p.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(start)
	s.values <- "21.5"
	wg.Wait()

	assert.Equal(t, int32(1), s.started.Load())
	assert.Equal(t, []float64{21.5, 21.5}, results)
}

func TestObservablePropertyNotifiesOnChangeOnly(t *testing.T) {
	s := newSubscriber()
	p := apiclient.NewObservableProperty(s.transport(), temperature, func(v float64) float64 { return v })
	defer p.Close()

	changes := make(chan float64, 16)
	p.OnChange(func(v float64) { changes <- v })

	s.values <- "1"
	v, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	for _, next := range []string{"1", "2", "2", "3"} {
		s.values <- next
	}

	var got []float64
	for len(got) < 3 {
		select {
		case c := <-changes:
			got = append(got, c)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing change notifications, got %v", got)
		}
	}
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.Eventually(t, func() bool {
		v, _ := p.Get(context.Background())
		return v == 3
	}, time.Second, 10*time.Millisecond)
}

func TestObservablePropertyClose(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		s := newSubscriber()
		p := apiclient.NewObservableProperty(s.transport(), temperature, func(v float64) float64 { return v })
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		_, err := p.Get(context.Background())
		assert.ErrorIs(t, err, apiclient.ErrClosed)
		assert.Equal(t, int32(0), s.started.Load())
	})

	t.Run("started", func(t *testing.T) {
		s := newSubscriber()
		p := apiclient.NewObservableProperty(s.transport(), temperature, func(v float64) float64 { return v })
		s.values <- "5"
		_, err := p.Get(context.Background())
		require.NoError(t, err)

		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		select {
		case <-s.ended:
		case <-time.After(2 * time.Second):
			t.Fatal("subscription not released")
		}
		assert.Len(t, s.ended, 0)
	})
}

func TestLazyFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	fail := true
	l := apiclient.NewLazy(func(ctx context.Context) (string, error) {
		calls.Add(1)
		if fail {
			fail = false
			return "", errors.New("offline")
		}
		return "v1", nil
	})

	_, err := l.Get(context.Background())
	require.Error(t, err)
	for range 3 {
		v, err := l.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "v1", v)
	}
	assert.Equal(t, int32(2), calls.Load())
}
