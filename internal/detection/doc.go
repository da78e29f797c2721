// Package detection finds disc-shaped specimens in photographs and turns
// them into annotation records.
//
// It is a classical, model-free detector intended for trays photographed on
// a plain background. Files produced by an external detection model can be
// used instead; see annotation.ParseDetections.
//
// # Algorithm Overview
//
//  1. Downscale so the longer side is at most MaxSide pixels
//  2. Grayscale, Gaussian blur and Sobel gradient magnitude
//  3. Threshold the gradient into a binary edge map
//  4. Hough circle voting for each radius in [MinRadius, MaxRadius]
//  5. Keep local maxima above the vote fraction, strongest first, and drop
//     circles whose centers fall inside a stronger one
//  6. Scale back and emit the bounding square of each circle
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin at the top-left
// corner, X increases rightward and Y increases downward.
//
// # Performance Considerations
//
// Voting costs O(edge pixels x radii x samples per circle). MaxSide bounds
// the first factor and the radius range the second, so keep both as tight as
// the photographs allow.
package detection
