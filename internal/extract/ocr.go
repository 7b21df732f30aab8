package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// recognizeImage runs tesseract text recognition directly on raster image
// bytes. gosseract decodes the image itself via leptonica.
func recognizeImage(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
