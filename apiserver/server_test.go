package apiserver_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Alia5/featurec/apiclient"
	"github.com/Alia5/featurec/apiserver"
	"github.com/Alia5/featurec/apitypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*apiserver.Server, *greeter) {
	t.Helper()
	r, g, _ := newRouter(t)
	srv := apiserver.New(r, "127.0.0.1:0", nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv, g
}

func TestServerRoundTrip(t *testing.T) {
	srv, _ := startServer(t)
	tr := apiclient.NewTransport(srv.Addr())

	got, err := apiclient.Execute[helloResponse](context.Background(), tr, sayHello, helloRequest{Name: "tcp"})
	require.NoError(t, err)
	assert.Equal(t, "hello tcp", got.Greeting)

	_, err = apiclient.Execute[helloResponse](context.Background(), tr, sayHello, helloRequest{Name: "nobody"})
	assert.True(t, apiclient.IsDefined(apiclient.ConvertError(err), unknownName))

	require.NoError(t, apiclient.Call(context.Background(), tr, upload, struct{ Data []byte }{Data: []byte{1, 2}}))
}

func TestServerStreamsIntermediates(t *testing.T) {
	srv, _ := startServer(t)
	tr := apiclient.NewTransport(srv.Addr())

	type progress struct {
		Current int `json:"Current"`
	}
	exec := apiclient.ExecuteObservable(context.Background(), tr, count, countRequest{To: 5},
		func(p progress) int { return p.Current }, func(n int) int { return n }, apiclient.ConvertError)
	var got []int
	for v := range exec.Intermediates() {
		got = append(got, v)
	}
	total, err := exec.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 5, total)
}

func TestServerSubscriptionEndsWithClient(t *testing.T) {
	srv, g := startServer(t)
	tr := apiclient.NewTransport(srv.Addr())
	g.temperature.Store(7)

	ctx, cancel := context.WithCancel(context.Background())
	values := make(chan int64, 4)
	done := make(chan error, 1)
	go func() {
		done <- apiclient.Subscribe(ctx, tr, temperature, func(v int64) { values <- v })
	}()

	select {
	case v := <-values:
		assert.Equal(t, int64(7), v)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial value")
	}
	g.temperature.Store(8)
	srv.Router().Notify(temperature)
	select {
	case v := <-values:
		assert.Equal(t, int64(8), v)
	case <-time.After(2 * time.Second):
		t.Fatal("no update")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestServerMalformedRequest(t *testing.T) {
	srv, _ := startServer(t)
	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()

	_, err = fmt.Fprintf(c, "%s {not json\x00", apitypes.Path(apitypes.VerbExecute, sayHello))
	require.NoError(t, err)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 512)
	n, _ := c.Read(buf)
	assert.Contains(t, string(buf[:n]), `"kind":"fault"`)
	assert.Contains(t, string(buf[:n]), "malformed envelope")
}

func TestServerRequiresKey(t *testing.T) {
	r, _, _ := newRouter(t)
	srv := apiserver.New(r, "127.0.0.1:0", nil)
	require.NoError(t, srv.RequireKey("s3cret"))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	keyed := apiclient.NewTransportWithConfig(srv.Addr(), &apiclient.Config{
		DialTimeout: 2 * time.Second, WriteTimeout: 2 * time.Second, ReadTimeout: 2 * time.Second,
		Password: "s3cret",
	})
	got, err := apiclient.Execute[helloResponse](context.Background(), keyed, sayHello, helloRequest{Name: "sealed"})
	require.NoError(t, err)
	assert.Equal(t, "hello sealed", got.Greeting)

	tests := []struct {
		name     string
		password string
	}{
		{name: "wrong key", password: "guess"},
		{name: "no key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := apiclient.NewTransportWithConfig(srv.Addr(), &apiclient.Config{
				DialTimeout: 2 * time.Second, WriteTimeout: 2 * time.Second, ReadTimeout: 2 * time.Second,
				Password: tt.password,
			})
			_, err := apiclient.Execute[helloResponse](context.Background(), tr, sayHello, helloRequest{Name: "x"})
			require.Error(t, err)
			var fe *apitypes.FrameworkError
			require.ErrorAs(t, apiclient.ConvertError(err), &fe)
			assert.Equal(t, apitypes.AuthenticationFailed, fe.Kind)
		})
	}
}
