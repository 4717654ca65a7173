package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"

	"pkt.systems/tilesync/core"
	"pkt.systems/tilesync/internal/imagedec"
	"pkt.systems/tilesync/internal/viewport"
)

// composeViewport paints the loaded tiles of the grid's cells onto a canvas
// the size of the viewport. Missing tiles stay white.
func composeViewport(grid *viewport.Grid, snap core.Snapshot) (*image.RGBA, int) {
	size := grid.Size()
	canvas := image.NewRGBA(image.Rect(0, 0, int(size.X), int(size.Y)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	active := make(map[string]struct{})
	for _, key := range grid.Cells() {
		active[key.String()] = struct{}{}
	}
	painted := 0
	for _, slot := range snap.Slots {
		if slot.Image == nil {
			continue
		}
		if _, ok := active[slot.Key.String()]; !ok {
			continue
		}
		img, err := imagedec.Decode(*slot.Image)
		if err != nil {
			continue
		}
		r := grid.CellRect(slot.Key)
		dst := image.Rect(int(math.Round(r.Min.X)), int(math.Round(r.Min.Y)), int(math.Round(r.Max.X)), int(math.Round(r.Max.Y)))
		draw.Draw(canvas, dst, img, img.Bounds().Min, draw.Over)
		painted++
	}
	return canvas, painted
}

func writeSnapshot(path string, width int, grid *viewport.Grid, snap core.Snapshot) error {
	canvas, _ := composeViewport(grid, snap)
	var out image.Image = canvas
	if width > 0 && width != canvas.Bounds().Dx() && canvas.Bounds().Dx() > 0 {
		height := canvas.Bounds().Dy() * width / canvas.Bounds().Dx()
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
		out = scaled
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}
