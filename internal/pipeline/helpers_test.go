package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type box struct{ xmin, ymin, xmax, ymax int }

// vocXML renders a minimal annotation document.
func vocXML(filename string, width, height int, boxes ...box) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<annotation>\n\t<folder>specimens</folder>\n\t<filename>%s</filename>\n", filename)
	fmt.Fprintf(&b, "\t<size>\n\t\t<width>%d</width>\n\t\t<height>%d</height>\n\t\t<depth>3</depth>\n\t</size>\n", width, height)
	for _, bx := range boxes {
		fmt.Fprintf(&b, "\t<object>\n\t\t<name>disc</name>\n\t\t<bndbox>\n")
		fmt.Fprintf(&b, "\t\t\t<xmin>%d</xmin>\n\t\t\t<ymin>%d</ymin>\n\t\t\t<xmax>%d</xmax>\n\t\t\t<ymax>%d</ymax>\n",
			bx.xmin, bx.ymin, bx.xmax, bx.ymax)
		fmt.Fprintf(&b, "\t\t</bndbox>\n\t</object>\n")
	}
	b.WriteString("</annotation>\n")
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writePNG(t *testing.T, dir, name string, w, h int, draw func(img *image.RGBA)) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	if draw != nil {
		draw(img)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// Four regions whose reading order is top-left, bottom-left, top-right,
// bottom-right on a 100px wide image, listed out of order.
var shuffled = []box{
	{82, 42, 98, 58}, // center (90,50)
	{5, 0, 15, 10},   // center (10,5)
	{83, 0, 97, 14},  // center (90,7)
	{4, 44, 16, 56},  // center (10,50)
}

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := New(opts)
	require.NoError(t, err)
	return r
}
