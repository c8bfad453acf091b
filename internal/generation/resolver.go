package generation

import "imagechat/pkg/models"

// Resolve picks the generation mode from the number of input images and the
// number of requested outputs. The image count is checked first; a batch
// size below one counts as one.
func Resolve(inputImageCount, batchSize int) models.GenerationType {
	batch := batchSize > 1

	switch {
	case inputImageCount > 1:
		if batch {
			return models.MultiReferenceBatch
		}
		return models.MultiImageFusion
	case inputImageCount == 1:
		if batch {
			return models.ImageToBatch
		}
		return models.ImageToImage
	default:
		if batch {
			return models.TextToBatch
		}
		return models.TextToImage
	}
}
