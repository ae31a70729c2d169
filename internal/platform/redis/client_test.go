package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualifier/pkg/platform/sentinel"
)

func TestNew(t *testing.T) {
	t.Run("empty url disables the client", func(t *testing.T) {
		client, err := New(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("invalid url is rejected", func(t *testing.T) {
		_, err := New(context.Background(), "not-a-redis-url")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("unreachable server is unavailable", func(t *testing.T) {
		client, err := New(context.Background(), "redis://127.0.0.1:1/0")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Nil(t, client)
	})
}
