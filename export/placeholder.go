package export

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	PlaceholderWidth       = 800
	PlaceholderHeight      = 100
	ErrorPlaceholderHeight = 200

	errorMarkerHeight = 8
)

var (
	white       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	errorMarker = color.RGBA{R: 0xd9, G: 0x30, B: 0x25, A: 0xff}
	errorText   = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
)

// BlankPlaceholder returns the bitmap substituted for hidden or zero-sized regions.
func BlankPlaceholder(background color.Color) *image.RGBA {
	return filledRGBA(PlaceholderWidth, PlaceholderHeight, background)
}

// ErrorPlaceholder returns a white bitmap with an error marker bar and label.
func ErrorPlaceholder(regionID string, background color.Color) *image.RGBA {
	img := filledRGBA(PlaceholderWidth, ErrorPlaceholderHeight, background)

	bar := image.Rect(0, 0, PlaceholderWidth, errorMarkerHeight)
	xdraw.Draw(img, bar, image.NewUniform(errorMarker), image.Point{}, xdraw.Src)

	label := "capture failed"
	if regionID != "" {
		label += ": " + regionID
	}
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(errorText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(16, ErrorPlaceholderHeight/2),
	}
	drawer.DrawString(label)
	return img
}

func filledRGBA(width, height int, background color.Color) *image.RGBA {
	if background == nil {
		background = white
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)
	return img
}
