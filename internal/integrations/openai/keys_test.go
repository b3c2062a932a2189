package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/domain"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val      string
	err      error
	lastName string
	onCall   func() // optional; called on each GetParameter invocation
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.lastName = name
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func TestStaticKey(t *testing.T) {
	key, err := StaticKey(" sk-env ").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)

	_, err = StaticKey("  ").APIKey(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestNewParamStoreKey_Validates(t *testing.T) {
	_, err := NewParamStoreKey(nil, "/chat-relay")
	require.Error(t, err)

	_, err = NewParamStoreKey(&fakeGetter{}, " / ")
	require.Error(t, err)
}

func TestParamStoreKey_FetchedOnFirstCall(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	g.onCall = func() { calls++ }
	src, err := NewParamStoreKey(g, "/chat-relay/")
	require.NoError(t, err)

	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)
	require.Equal(t, "/chat-relay/open-ai-token", g.lastName)
	require.Equal(t, 1, calls)

	// subsequent calls must never hit SSM again
	_, _ = src.APIKey(context.Background())
	_, _ = src.APIKey(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once after a successful read")
}

func TestParamStoreKey_FailureIsRetried(t *testing.T) {
	g := &fakeGetter{err: errors.New("ssm unavailable")}
	src, err := NewParamStoreKey(g, "/chat-relay")
	require.NoError(t, err)

	_, err = src.APIKey(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	require.ErrorContains(t, err, "ssm unavailable")

	g.err = nil
	g.val = `{"token":"sk-later"}`
	key, err := src.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-later", key)
}

// ---------------------------------------------------------------------------
// fetchAPIKeyFromParamStore
// ---------------------------------------------------------------------------

func TestFetchAPIKey_JSONToken(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/chat-relay/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk-from-json", key)
}

func TestFetchAPIKey_JSONMissingTokenField(t *testing.T) {
	g := &fakeGetter{val: `{"other":"value"}`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/chat-relay/open-ai-token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API token is empty")
}

func TestFetchAPIKey_MalformedJSON(t *testing.T) {
	g := &fakeGetter{val: `{"broken`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/chat-relay/open-ai-token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestFetchAPIKey_NilGetter(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), nil, "/chat-relay/open-ai-token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestFetchAPIKey_EmptyName(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}
