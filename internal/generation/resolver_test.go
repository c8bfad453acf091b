package generation

import (
	"testing"

	"imagechat/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		images, batch int
		expected      models.GenerationType
	}{
		{0, 1, models.TextToImage},
		{0, 0, models.TextToImage},
		{0, -3, models.TextToImage},
		{0, 2, models.TextToBatch},
		{0, 4, models.TextToBatch},
		{1, 1, models.ImageToImage},
		{1, 0, models.ImageToImage},
		{1, 2, models.ImageToBatch},
		{2, 1, models.MultiImageFusion},
		{5, 0, models.MultiImageFusion},
		{2, 2, models.MultiReferenceBatch},
		{3, 9, models.MultiReferenceBatch},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, Resolve(tc.images, tc.batch), "images=%d batch=%d", tc.images, tc.batch)
	}
}
