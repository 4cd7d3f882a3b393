package imaging

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ThumbnailLongEdge is the fixed target size of a thumbnail's longest edge.
const ThumbnailLongEdge = 450

// FitLongEdge computes thumbnail dimensions that preserve the source aspect
// ratio with the longest edge scaled to target. The short edge is truncated,
// not rounded, matching the reference resizer.
func FitLongEdge(width, height, target int) (int, int) {
	if width > height {
		return target, int(float64(height) / float64(width) * float64(target))
	}
	return int(float64(width) / float64(height) * float64(target)), target
}

// Thumbnail resamples src down to the fixed long-edge size. For formats with
// an alpha channel the canvas is pre-filled fully transparent and drawn with
// the Src operator so transparency survives instead of turning black; opaque
// formats get a white canvas.
func Thumbnail(src image.Image, f Format) image.Image {
	bounds := src.Bounds()
	width, height := FitLongEdge(bounds.Dx(), bounds.Dy(), ThumbnailLongEdge)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	if f.HasAlpha() {
		fill = image.NewUniform(color.NRGBA{})
	}
	draw.Draw(dst, dst.Bounds(), fill, image.Point{}, draw.Src)

	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}
