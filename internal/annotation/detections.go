package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseDetections converts detector output into a record for an image of the
// given size.
//
// Each line holds "class confidence x1 y1 x2 y2". Lines with any other
// number of fields are skipped. Corners may be fractional; they are truncated
// toward zero so the record stays integer-valued. The class becomes the
// region label and the confidence text is kept as written.
func ParseDetections(r io.Reader, width, height int) (*Record, error) {
	rec := &Record{Width: width, Height: height, Depth: 3}

	scanner := bufio.NewScanner(r)
	line := -1
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) != 6 {
			continue
		}

		var corners [4]int
		names := [4]string{"x1", "y1", "x2", "y2"}
		for k := 0; k < 4; k++ {
			v, err := strconv.ParseFloat(parts[k+2], 64)
			if err != nil {
				return nil, &MalformedError{Index: line, Field: names[k], Value: parts[k+2], Err: err}
			}
			corners[k] = int(v)
		}

		region := NewRegion(parts[0], corners[0], corners[1], corners[2], corners[3])
		region.Confidence = parts[1]
		rec.Regions = append(rec.Regions, region)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}

	return rec, nil
}
