package annotation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// vocDocument is the typed view used for extraction. Pointer fields let
// Parse tell an absent element from an empty one.
type vocDocument struct {
	XMLName xml.Name
	Size    *vocSize    `xml:"size"`
	Objects []vocObject `xml:"object"`
}

type vocSize struct {
	Width  *string `xml:"width"`
	Height *string `xml:"height"`
	Depth  *string `xml:"depth"`
}

type vocObject struct {
	Name       *string `xml:"name"`
	Confidence *string `xml:"confidence"`
	Bndbox     *vocBox `xml:"bndbox"`
}

type vocBox struct {
	XMin *string `xml:"xmin"`
	YMin *string `xml:"ymin"`
	XMax *string `xml:"xmax"`
	YMax *string `xml:"ymax"`
}

// vocTree is the untyped view used to carry the rest of the document through
// a rewrite.
type vocTree struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []rawNode  `xml:",any"`
}

type rawNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// ParseFile reads and parses the annotation at path.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer f.Close()

	rec, err := Parse(f)
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			me.Path = path
		}
		return nil, err
	}
	return rec, nil
}

// Parse extracts the image size and regions from one VOC document.
//
// size/width, size/height and, for every object, name and the four bndbox
// corners are required and must be base-10 integers. A document without
// objects parses successfully with an empty region list.
func Parse(r io.Reader) (*Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation: %w", err)
	}

	var doc vocDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedError{Index: -1, Err: err}
	}
	var tree vocTree
	if err := xml.Unmarshal(data, &tree); err != nil {
		return nil, &MalformedError{Index: -1, Err: err}
	}

	if doc.Size == nil {
		return nil, &MalformedError{Index: -1, Field: "size", Err: ErrMissingField}
	}
	width, err := requireInt(-1, "size/width", doc.Size.Width)
	if err != nil {
		return nil, err
	}
	height, err := requireInt(-1, "size/height", doc.Size.Height)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Width:   width,
		Height:  height,
		Regions: make([]Region, 0, len(doc.Objects)),
		tree:    &tree,
	}
	if doc.Size.Depth != nil {
		if d, err := strconv.Atoi(strings.TrimSpace(*doc.Size.Depth)); err == nil {
			rec.Depth = d
		}
	}

	for i, obj := range doc.Objects {
		region, err := parseObject(i, obj)
		if err != nil {
			return nil, err
		}
		rec.Regions = append(rec.Regions, region)
	}

	return rec, nil
}

func parseObject(i int, obj vocObject) (Region, error) {
	if obj.Name == nil {
		return Region{}, &MalformedError{Index: i, Field: "name", Err: ErrMissingField}
	}
	if obj.Bndbox == nil {
		return Region{}, &MalformedError{Index: i, Field: "bndbox", Err: ErrMissingField}
	}

	var corners [4]int
	fields := [4]struct {
		name string
		val  *string
	}{
		{"bndbox/xmin", obj.Bndbox.XMin},
		{"bndbox/ymin", obj.Bndbox.YMin},
		{"bndbox/xmax", obj.Bndbox.XMax},
		{"bndbox/ymax", obj.Bndbox.YMax},
	}
	for k, f := range fields {
		v, err := requireInt(i, f.name, f.val)
		if err != nil {
			return Region{}, err
		}
		corners[k] = v
	}

	region := NewRegion(strings.TrimSpace(*obj.Name), corners[0], corners[1], corners[2], corners[3])
	if obj.Confidence != nil {
		region.Confidence = strings.TrimSpace(*obj.Confidence)
	}
	return region, nil
}

func requireInt(index int, field string, val *string) (int, error) {
	if val == nil {
		return 0, &MalformedError{Index: index, Field: field, Err: ErrMissingField}
	}
	s := strings.TrimSpace(*val)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &MalformedError{Index: index, Field: field, Value: s, Err: err}
	}
	return n, nil
}

type sizeOut struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth,omitempty"`
}

type objectOut struct {
	Name       string `xml:"name"`
	Confidence string `xml:"confidence,omitempty"`
	Bndbox     boxOut `xml:"bndbox"`
}

type boxOut struct {
	XMin int `xml:"xmin"`
	YMin int `xml:"ymin"`
	XMax int `xml:"xmax"`
	YMax int `xml:"ymax"`
}

// Write serializes rec in VOC form.
//
// Non-object elements of the source document keep their order. Inside the
// source size block only width and height are replaced from rec; depth and
// any other children are kept as written. Objects follow,
// one per region in slice order, with corners recomputed from origin + size.
func Write(w io.Writer, rec *Record) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")

	root := xml.StartElement{Name: xml.Name{Local: "annotation"}}
	var nodes []rawNode
	if rec.tree != nil {
		root.Name = xml.Name{Local: rec.tree.XMLName.Local}
		root.Attr = rec.tree.Attrs
		nodes = rec.tree.Nodes
	}

	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}

	size := sizeOut{Width: rec.Width, Height: rec.Height, Depth: rec.Depth}
	sizeWritten := false
	for _, n := range nodes {
		switch n.XMLName.Local {
		case "object":
			continue
		case "size":
			if sizeWritten {
				continue
			}
			if err := writeSize(enc, n, rec); err != nil {
				return fmt.Errorf("failed to encode size: %w", err)
			}
			sizeWritten = true
		default:
			n.XMLName = xml.Name{Local: n.XMLName.Local}
			if err := enc.Encode(n); err != nil {
				return fmt.Errorf("failed to encode %s: %w", n.XMLName.Local, err)
			}
		}
	}
	if !sizeWritten {
		if err := enc.EncodeElement(size, xml.StartElement{Name: xml.Name{Local: "size"}}); err != nil {
			return fmt.Errorf("failed to encode size: %w", err)
		}
	}

	objStart := xml.StartElement{Name: xml.Name{Local: "object"}}
	for i, r := range rec.Regions {
		obj := objectOut{
			Name:       r.Label,
			Confidence: r.Confidence,
			Bndbox: boxOut{
				XMin: r.XMin,
				YMin: r.YMin,
				XMax: r.XMax(),
				YMax: r.YMax(),
			},
		}
		if err := enc.EncodeElement(obj, objStart); err != nil {
			return fmt.Errorf("failed to encode object %d: %w", i, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush annotation: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type sizeChildren struct {
	Nodes []rawNode `xml:",any"`
}

// writeSize re-emits the source size node n with rec's width and height.
func writeSize(enc *xml.Encoder, n rawNode, rec *Record) error {
	var children sizeChildren
	wrapped := make([]byte, 0, len(n.Inner)+13)
	wrapped = append(wrapped, "<size>"...)
	wrapped = append(wrapped, n.Inner...)
	wrapped = append(wrapped, "</size>"...)
	if err := xml.Unmarshal(wrapped, &children); err != nil {
		return err
	}

	start := xml.StartElement{Name: xml.Name{Local: "size"}, Attr: n.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	width := xml.StartElement{Name: xml.Name{Local: "width"}}
	height := xml.StartElement{Name: xml.Name{Local: "height"}}
	var haveWidth, haveHeight bool
	for _, c := range children.Nodes {
		var err error
		switch c.XMLName.Local {
		case "width":
			err = enc.EncodeElement(rec.Width, width)
			haveWidth = true
		case "height":
			err = enc.EncodeElement(rec.Height, height)
			haveHeight = true
		default:
			c.XMLName = xml.Name{Local: c.XMLName.Local}
			err = enc.Encode(c)
		}
		if err != nil {
			return err
		}
	}
	if !haveWidth {
		if err := enc.EncodeElement(rec.Width, width); err != nil {
			return err
		}
	}
	if !haveHeight {
		if err := enc.EncodeElement(rec.Height, height); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

// WriteFile writes rec to dir/name, creating dir if needed, and returns the
// written path. The record is written to a temporary file first and renamed
// into place so a failed write never leaves a truncated record behind.
func WriteFile(rec *Record, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := Write(tmp, rec); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write annotation: %w", err)
	}
	return out, nil
}
