package apiserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alia5/featurec/apiclient"
	"github.com/Alia5/featurec/apiserver"
	"github.com/Alia5/featurec/apitypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sayHello    = "org.example/test/Greeter/v1/Command/SayHello"
	count       = "org.example/test/Greeter/v1/Command/Count"
	upload      = "org.example/test/Greeter/v1/Command/Upload"
	temperature = "org.example/test/Greeter/v1/Property/Temperature"
	token       = "org.example/test/Greeter/v1/Metadata/Token"
	unknownName = "org.example/test/Greeter/v1/DefinedExecutionError/UnknownName"
)

type helloRequest struct {
	Name string `json:"Name"`
}

type helloResponse struct {
	Greeting string `json:"Greeting"`
}

type countRequest struct {
	To int `json:"To"`
}

type tokenCheck struct{ seen atomic.Value }

func (c *tokenCheck) Intercept(ctx context.Context, metadata string, value any) error {
	raw, _ := value.(json.RawMessage)
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if s != "secret" {
		return errors.New("bad token")
	}
	c.seen.Store(s)
	return nil
}

// greeter is registered the way generated servers register themselves.
type greeter struct {
	temperature atomic.Int64
}

func (g *greeter) register(r apiserver.Registrar, tc *tokenCheck) {
	r.RegisterCommand(sayHello, false, apiserver.Command(func(ctx context.Context, req *helloRequest, emit apiserver.Emitter) (helloResponse, error) {
		if problems := apitypes.CheckMinimalLength("Name", req.Name, 1); len(problems) > 0 {
			return helloResponse{}, apiserver.ValidationFault(sayHello+"/Parameter/Name", problems...)
		}
		if req.Name == "nobody" {
			return helloResponse{}, apiserver.DefinedFault(unknownName, "who?")
		}
		if req.Name == "panic" {
			return helloResponse{}, apiserver.UndefinedFault(errors.New("disk on fire"))
		}
		return helloResponse{Greeting: "hello " + req.Name}, nil
	}), nil)
	r.RegisterCommand(count, true, apiserver.Command(func(ctx context.Context, req *countRequest, emit apiserver.Emitter) (int, error) {
		ch := make(chan int)
		go func() {
			defer close(ch)
			for i := 1; i <= req.To; i++ {
				ch <- i
			}
		}()
		err := apiserver.Forward(ctx, ch, emit, func(v int) map[string]int { return map[string]int{"Current": v} })
		return req.To, err
	}), nil)
	r.RegisterCommand(upload, false, apiserver.Void(func(ctx context.Context, req *struct{ Data []byte }, emit apiserver.Emitter) error {
		return nil
	}), []string{upload + "/Parameter/Data"})
	r.RegisterProperty(temperature, true, apiserver.Property(func(ctx context.Context) (int64, error) {
		return g.temperature.Load(), nil
	}))
	r.RegisterMetadata(token, tc)
}

func newRouter(t *testing.T) (*apiserver.Router, *greeter, *tokenCheck) {
	t.Helper()
	r := apiserver.NewRouter(nil)
	g := &greeter{}
	tc := &tokenCheck{}
	g.register(r, tc)
	return r, g, tc
}

func TestRouterDispatch(t *testing.T) {
	r, _, _ := newRouter(t)
	client := apiclient.NewMockTransport(r.Dispatch)
	ctx := context.Background()

	tests := []struct {
		name    string
		request helloRequest
		want    string
		check   func(t *testing.T, err error)
	}{
		{name: "ok", request: helloRequest{Name: "ada"}, want: "hello ada"},
		{
			name:    "validation",
			request: helloRequest{},
			check: func(t *testing.T, err error) {
				var ve *apitypes.ValidationError
				require.ErrorAs(t, apiclient.ConvertError(err), &ve)
				assert.Equal(t, sayHello+"/Parameter/Name", ve.Parameter)
			},
		},
		{
			name:    "defined",
			request: helloRequest{Name: "nobody"},
			check: func(t *testing.T, err error) {
				converted := apiclient.ConvertError(err)
				assert.True(t, apiclient.IsDefined(converted, unknownName))
				assert.Equal(t, "who?", apiclient.Message(converted))
			},
		},
		{
			name:    "undefined",
			request: helloRequest{Name: "panic"},
			check: func(t *testing.T, err error) {
				var ue *apitypes.UndefinedExecutionError
				require.ErrorAs(t, apiclient.ConvertError(err), &ue)
				assert.Contains(t, ue.Message, "disk on fire")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := apiclient.Execute[helloResponse](ctx, client, sayHello, tt.request)
			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Greeting)
		})
	}
}

func TestRouterIdentifiersMatchCaseInsensitively(t *testing.T) {
	r, _, _ := newRouter(t)
	client := apiclient.NewMockTransport(r.Dispatch)

	got, err := apiclient.Execute[helloResponse](context.Background(), client, "ORG.EXAMPLE/test/greeter/v1/Command/sayhello", helloRequest{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "hello x", got.Greeting)
	assert.True(t, r.Observable(count))
	assert.False(t, r.Observable(sayHello))
	assert.Equal(t, []string{upload + "/Parameter/Data"}, r.Binary(upload))
	assert.Len(t, r.Identifiers(), 4)
}

func TestRouterUnknownPath(t *testing.T) {
	r, _, _ := newRouter(t)
	_, err := r.Dispatch(context.Background(), apitypes.Path(apitypes.VerbExecute, "org.example/test/Greeter/v1/Command/Nope"), apitypes.Envelope{}, func(json.RawMessage) {})
	var fe *apitypes.FrameworkError
	require.ErrorAs(t, apiclient.ConvertError(err), &fe)
	assert.Equal(t, apitypes.UnimplementedFeatureElement, fe.Kind)

	_, err = r.Dispatch(context.Background(), "garbage", apitypes.Envelope{}, func(json.RawMessage) {})
	require.ErrorAs(t, apiclient.ConvertError(err), &fe)
	assert.Equal(t, apitypes.CommandExecutionNotAccepted, fe.Kind)
}

func TestRouterObservableCommand(t *testing.T) {
	r, _, _ := newRouter(t)
	client := apiclient.NewMockTransport(r.Dispatch)

	type progress struct {
		Current int `json:"Current"`
	}
	exec := apiclient.ExecuteObservable(context.Background(), client, count, countRequest{To: 3},
		func(p progress) int { return p.Current },
		func(n int) int { return n },
		apiclient.ConvertError,
	)
	var got []int
	for v := range exec.Intermediates() {
		got = append(got, v)
	}
	total, err := exec.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 3, total)
}

func TestRouterMetadata(t *testing.T) {
	r, _, tc := newRouter(t)
	client := apiclient.NewMockTransport(r.Dispatch)

	ctx := apiclient.WithMetadata(context.Background(), token, "secret")
	_, err := apiclient.Execute[helloResponse](ctx, client, sayHello, helloRequest{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "secret", tc.seen.Load())

	ctx = apiclient.WithMetadata(context.Background(), token, "wrong")
	_, err = apiclient.Execute[helloResponse](ctx, client, sayHello, helloRequest{Name: "x"})
	var fe *apitypes.FrameworkError
	require.ErrorAs(t, apiclient.ConvertError(err), &fe)
	assert.Equal(t, apitypes.InvalidMetadata, fe.Kind)

	ctx = apiclient.WithMetadata(context.Background(), "org.example/test/Greeter/v1/Metadata/Other", 1)
	_, err = apiclient.Execute[helloResponse](ctx, client, sayHello, helloRequest{Name: "x"})
	require.ErrorAs(t, apiclient.ConvertError(err), &fe)
	assert.Equal(t, apitypes.NoMetadataAllowed, fe.Kind)
}

func TestRouterSubscription(t *testing.T) {
	r, g, _ := newRouter(t)
	client := apiclient.NewMockTransport(r.Dispatch)
	g.temperature.Store(20)

	p := apiclient.NewObservableProperty(client, temperature, func(v int64) int64 { return v })
	defer p.Close()
	changes := make(chan int64, 4)
	p.OnChange(func(v int64) { changes <- v })

	v, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)

	g.temperature.Store(25)
	r.Notify(temperature)
	assert.Eventually(t, func() bool {
		v, _ := p.Get(context.Background())
		return v == 25
	}, 2*time.Second, 10*time.Millisecond)

	read, err := apiclient.Read[int64](context.Background(), client, temperature)
	require.NoError(t, err)
	assert.Equal(t, int64(25), read)
}
