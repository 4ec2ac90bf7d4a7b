// Package viz provides a terminal player for simulation runs.
//
// The player is a Bubble Tea program that steps a run live, draws the field
// on a braille [Canvas] and keeps every retained snapshot for replay:
//
//	Space - Pause/Resume stepping
//	R     - Restart from the initial condition
//	[ ]   - Scrub through retained snapshots
//	+ -   - Double or halve the steps per frame
//	G     - Write the finished run as a GIF
//	T     - Cycle colour themes
//	Q     - Quit
package viz
