package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	t.Run("nested under the prefix", func(t *testing.T) {
		u := &S3Uploader{prefix: "reports/2024"}
		assert.Equal(t, "reports/2024/plot.png", u.objectKey("plot.png"))
	})

	t.Run("no prefix", func(t *testing.T) {
		u := &S3Uploader{}
		assert.Equal(t, "plot.png", u.objectKey("plot.png"))
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("plot.png"))
	assert.Equal(t, "application/octet-stream", contentType("model.bin"))
}
