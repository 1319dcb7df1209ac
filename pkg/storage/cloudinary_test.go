package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v123456789/evidence/shot.webp", "evidence/shot"},
		{"https://res.cloudinary.com/demo/image/upload/evidence/shot.jpg", "evidence/shot"},
		{"https://res.cloudinary.com/demo/image/upload/shot.png", "shot"},
		{"https://res.cloudinary.com/demo/image/upload/vacation/shot.png", "vacation/shot"},
		{"https://example.com/no/marker.png", ""},
		{"::not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicIDFromURL(tt.url))
		})
	}
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemoryStorage()
	ref, err := m.Store(context.Background(), strings.NewReader("png"), "shot.png")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(context.Background(), ref))
	assert.Equal(t, 0, m.Len())
}

func TestNilCloudinaryStorage(t *testing.T) {
	var s *cloudinaryStorage
	_, err := s.Store(context.Background(), strings.NewReader("x"), "a.png")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
