package multiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callTrace records the order in which pool members were attempted.
type callTrace struct {
	mu    sync.Mutex
	names []string
}

func (t *callTrace) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
}

func (t *callTrace) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.names...)
}

// fakeClient scripts one pool member.
type fakeClient struct {
	name      string
	trace     *callTrace
	transient bool      // always fail with a transport error
	permanent error     // return this error as-is
	failFirst int       // fail this many leading calls, then succeed
	canned    *Response // response to return instead of the default
	result    string

	mu    sync.Mutex
	calls int
}

func (f *fakeClient) Call(_ context.Context, _ string, _ ...any) (*Response, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.trace != nil {
		f.trace.add(f.name)
	}

	if f.permanent != nil {
		return nil, f.permanent
	}
	if f.transient || n <= f.failFirst {
		return nil, &TransportError{Provider: f.name, Cause: fmt.Errorf("connection to %s refused", f.name)}
	}
	if f.canned != nil {
		return f.canned, nil
	}
	result := f.result
	if result == "" {
		result = f.name
	}
	return &Response{JSONRPC: jsonrpcVersion, Result: json.RawMessage(`"` + result + `"`)}, nil
}

func (f *fakeClient) BatchCall(ctx context.Context, batch []BatchElem) error {
	resp, err := f.Call(ctx, "batch")
	if err != nil {
		return err
	}
	for i := range batch {
		batch[i].Response = resp
	}
	return nil
}

func (f *fakeClient) Endpoint() string { return "http://" + f.name + ".example.com" }
func (f *fakeClient) Provider() string { return "example.com" }

func newTestPool(t *testing.T, policy Policy, clients ...EndpointClient) *Provider {
	t.Helper()
	p, err := NewProviderFromClients(policy, clients)
	require.NoError(t, err)
	return p
}

func TestCallReturnsFirstSuccess(t *testing.T) {
	for _, policy := range []Policy{PolicyRotating, PolicyFallback} {
		trace := &callTrace{}
		a := &fakeClient{name: "a", trace: trace, transient: true}
		b := &fakeClient{name: "b", trace: trace}
		c := &fakeClient{name: "c", trace: trace}
		p := newTestPool(t, policy, a, b, c)

		resp, err := p.Call(context.Background(), "eth_blockNumber")
		require.NoError(t, err)
		assert.Equal(t, `"b"`, string(resp.Result))
		// The third candidate is abandoned once the second succeeds.
		assert.Equal(t, []string{"a", "b"}, trace.snapshot())
	}
}

func TestCallExhaustionCollectsEveryError(t *testing.T) {
	a := &fakeClient{name: "a", transient: true}
	b := &fakeClient{name: "b", transient: true}
	c := &fakeClient{name: "c", transient: true}
	p := newTestPool(t, PolicyRotating, a, b, c)

	_, err := p.Call(context.Background(), "eth_blockNumber")
	var exhausted *NoActiveProviderError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Errors(), 3)
}

func TestCallEmptyPool(t *testing.T) {
	p := newTestPool(t, PolicyRotating)
	_, err := p.Call(context.Background(), "eth_blockNumber")
	require.ErrorIs(t, err, ErrNoProvidersConfigured)

	var exhausted *NoActiveProviderError
	assert.False(t, errors.As(err, &exhausted), "empty pool must not look like exhaustion")
}

func TestRotatingCursorPersistsAcrossCalls(t *testing.T) {
	trace := &callTrace{}
	a := &fakeClient{name: "a", trace: trace, transient: true}
	b := &fakeClient{name: "b", trace: trace}
	p := newTestPool(t, PolicyRotating, a, b)

	_, err := p.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	_, err = p.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)

	// Call 1 tries a (fails) then b; call 2 starts at b directly.
	assert.Equal(t, []string{"a", "b", "b"}, trace.snapshot())
}

func TestRotatingCursorWrapsAround(t *testing.T) {
	trace := &callTrace{}
	a := &fakeClient{name: "a", trace: trace}
	b := &fakeClient{name: "b", trace: trace, transient: true}
	p := newTestPool(t, PolicyRotating, a, b)

	// Call 1 succeeds at a. Call 2 starts at a again, a now fails once.
	_, err := p.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)

	a.failFirst = 2 // the single remaining call in this test
	_, err = p.Call(context.Background(), "eth_blockNumber")
	var exhausted *NoActiveProviderError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"a", "a", "b"}, trace.snapshot())
}

func TestFallbackAlwaysStartsAtFirst(t *testing.T) {
	trace := &callTrace{}
	a := &fakeClient{name: "a", trace: trace, failFirst: 1}
	b := &fakeClient{name: "b", trace: trace}
	p := newTestPool(t, PolicyFallback, a, b)

	_, err := p.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	_, err = p.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "a"}, trace.snapshot())
}

func TestPermanentErrorPropagatesImmediately(t *testing.T) {
	misuse := &CallError{Cause: errors.New("empty method name")}
	a := &fakeClient{name: "a", permanent: misuse}
	b := &fakeClient{name: "b"}
	p := newTestPool(t, PolicyRotating, a, b)

	_, err := p.Call(context.Background(), "")
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 0, b.calls, "caller misuse must not fail over")
}

func TestCallCancellationAbandonsRemainingCandidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeClient{name: "a", transient: true}
	b := &fakeClient{name: "b"}
	p := newTestPool(t, PolicyFallback, a, b)

	cancel()
	_, err := p.Call(ctx, "eth_blockNumber")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestBatchCallFailsOverAsAWhole(t *testing.T) {
	a := &fakeClient{name: "a", transient: true}
	b := &fakeClient{name: "b"}
	p := newTestPool(t, PolicyRotating, a, b)

	batch := []BatchElem{{Method: "eth_blockNumber"}, {Method: "eth_chainId"}}
	require.NoError(t, p.BatchCall(context.Background(), batch))
	for i := range batch {
		require.NotNil(t, batch[i].Response)
	}
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestRotatingCursorConcurrentCalls(t *testing.T) {
	const workers = 16
	a := &fakeClient{name: "a", transient: true}
	b := &fakeClient{name: "b", transient: true}
	c := &fakeClient{name: "c", transient: true}
	p := newTestPool(t, PolicyRotating, a, b, c)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Call(context.Background(), "eth_blockNumber")
		}()
	}
	wg.Wait()

	// Every exhausted call advances the cursor exactly pool-size times, so
	// the cursor must land back where it started: no lost updates.
	sel := p.group.sel.(*rotatingSelector)
	assert.Equal(t, 0, sel.cursor)
	assert.Equal(t, workers*3, a.calls+b.calls+c.calls)
}

func TestCallSanitizesPoAResponse(t *testing.T) {
	block := map[string]any{
		"number":    "0x1",
		"extraData": "0x" + repeatHex(40),
	}
	raw, err := json.Marshal(block)
	require.NoError(t, err)

	a := &fakeClient{name: "a", canned: &Response{JSONRPC: jsonrpcVersion, Result: raw}}
	p := newTestPool(t, PolicyRotating, a)

	resp, err := p.Call(context.Background(), "eth_getBlockByNumber", "latest", false)
	require.NoError(t, err)

	var cleaned map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Result, &cleaned))
	assert.Contains(t, cleaned, "proofOfAuthorityData")
	assert.NotContains(t, cleaned, "extraData")
}

func repeatHex(n int) string {
	out := make([]byte, 2*n)
	for i := range out {
		out[i] = 'a'
	}
	return string(out)
}
