package remoteclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestOAuth2TokenSourceReturnsAccessToken(t *testing.T) {
	ts := NewOAuth2TokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc123"}))

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)
}

func TestOAuth2TokenSourceRefreshIsNoop(t *testing.T) {
	ts := NewOAuth2TokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc123"}))

	assert.NoError(t, ts.Refresh(context.Background()))
}
