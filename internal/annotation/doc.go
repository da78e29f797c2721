// Package annotation reads and writes Pascal VOC annotation records.
//
// A record carries the image size and an ordered list of detected regions.
// Parse extracts the regions; Write serializes a record back into the same
// shape, emitting the regions in whatever order the caller left them in.
//
// # Record Shape
//
//	<annotation>
//	  <filename>disc-(3).jpg</filename>
//	  <size><width>4000</width><height>3000</height><depth>3</depth></size>
//	  <object>
//	    <name>disc</name>
//	    <bndbox><xmin>10</xmin><ymin>20</ymin><xmax>410</xmax><ymax>420</ymax></bndbox>
//	  </object>
//	</annotation>
//
// Root children other than size and object are carried through a rewrite
// untouched and in their original order. Rewritten objects are appended after
// them, as name and bndbox only (plus confidence when the source had one).
//
// # Geometry
//
// Each Region stores its origin and size. The rectangle corners are derived
// on write as origin + size, so a stale xmax/ymax in the source can never
// leak into the output. Centers use floor division of the size and are kept
// as integers.
package annotation
