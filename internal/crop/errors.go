package crop

import "fmt"

// LoadError reports a source image that could not be read or decoded. It
// fails every region of the image.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// WriteError reports a crop that could not be produced or written. Index is
// the region's position in the sequence, or -1 when the destination
// directory itself could not be created.
type WriteError struct {
	Path  string
	Index int
	Err   error
}

func (e *WriteError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("failed to prepare crop directory %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to write crop %d to %s: %v", e.Index, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
