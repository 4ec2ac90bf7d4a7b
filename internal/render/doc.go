// Package render turns retained snapshots into pictures: an animated GIF
// with one plotted frame per snapshot, and plain-text charts for terminals.
//
// Every frame of a run shares one set of axis limits, computed by
// NewBounds, so the animation does not rescale between frames.
package render
