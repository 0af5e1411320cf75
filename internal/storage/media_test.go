package storage

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	t.Parallel()

	t.Run("valid image payload", func(t *testing.T) {
		t.Parallel()
		payload := []byte{0x89, 0x50, 0x4e, 0x47}
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

		mimeType, decoded, err := ParseDataURL(dataURL)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, payload, decoded)
	})

	t.Run("missing data prefix", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseDataURL("image/png;base64,AAAA")
		assert.Error(t, err)
	})

	t.Run("not base64 encoded", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseDataURL("data:image/png,rawbytes")
		assert.Error(t, err)
	})

	t.Run("empty media type", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseDataURL("data:;base64,AAAA")
		assert.Error(t, err)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		t.Parallel()
		_, _, err := ParseDataURL("data:image/png;base64,!!!not-base64!!!")
		assert.Error(t, err)
	})
}

func TestMediaKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image", MediaKind("image/jpeg"))
	assert.Equal(t, "image", MediaKind("image/webp"))
	assert.Equal(t, "video", MediaKind("video/mp4"))
	assert.Equal(t, "video", MediaKind("video/webm"))
}
