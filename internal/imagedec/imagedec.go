// Package imagedec reads tile payloads. Tiles are normally PNG; the server can
// be configured to emit other formats, so every decoder we know is registered.
package imagedec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pkt.systems/tilesync/schema"
)

// Inspect reads the image header without decoding pixels. A payload whose
// header cannot be read is still returned as a blob with an empty format.
func Inspect(data []byte) (schema.TileImage, error) {
	blob := schema.TileImage{Data: data}
	if len(data) == 0 {
		return blob, fmt.Errorf("empty tile payload")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return blob, fmt.Errorf("tile header: %w", err)
	}
	blob.Format = format
	blob.Width = cfg.Width
	blob.Height = cfg.Height
	return blob, nil
}

// Decode decodes the full image.
func Decode(blob schema.TileImage) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("tile decode: %w", err)
	}
	return img, nil
}
