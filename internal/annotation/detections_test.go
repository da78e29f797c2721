package annotation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetections(t *testing.T) {
	input := strings.Join([]string{
		"0 0.93 10.75 20.20 110.99 121.00",
		"",
		"bogus line",
		"1 0.40 200 5 260 65 extra",
		"1 0.51 300.4 40.6 360.2 99.9",
	}, "\n")

	rec, err := ParseDetections(strings.NewReader(input), 640, 480)
	require.NoError(t, err)

	assert.Equal(t, 640, rec.Width)
	assert.Equal(t, 480, rec.Height)
	assert.Equal(t, 3, rec.Depth)
	require.Len(t, rec.Regions, 2)

	first := rec.Regions[0]
	assert.Equal(t, "0", first.Label)
	assert.Equal(t, "0.93", first.Confidence)
	assert.Equal(t, 10, first.XMin)
	assert.Equal(t, 20, first.YMin)
	assert.Equal(t, 110, first.XMax())
	assert.Equal(t, 121, first.YMax())

	second := rec.Regions[1]
	assert.Equal(t, "1", second.Label)
	assert.Equal(t, 300, second.XMin)
	assert.Equal(t, 99, second.YMax())
}

func TestParseDetections_BadNumber(t *testing.T) {
	_, err := ParseDetections(strings.NewReader("0 0.9 1 2 three 4\n"), 10, 10)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 0, me.Index)
	assert.Equal(t, "x2", me.Field)
	assert.Equal(t, "three", me.Value)
}

func TestParseDetections_WritesVOC(t *testing.T) {
	rec, err := ParseDetections(strings.NewReader("0 0.88 1 2 3 4\n"), 50, 40)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec))
	out := buf.String()

	assert.Contains(t, out, "<depth>3</depth>")
	assert.Contains(t, out, "<confidence>0.88</confidence>")

	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Regions, back.Regions)
}
