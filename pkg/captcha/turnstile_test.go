package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDisabledAcceptsEverything(t *testing.T) {
	ok, err := NewTurnstile("").Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRequiresToken(t *testing.T) {
	_, err := NewTurnstile("secret").Verify(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyPostsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	ts := NewTurnstile("secret")
	ts.verifyURL = srv.URL

	ok, err := ts.Verify(context.Background(), "good", "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ts.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, ok)
}
