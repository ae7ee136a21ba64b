// Package analysis measures periodicity from sampled signals.
//
// The closed-form analyzer in package anim predicts a kind's period from its
// parameters. This package checks a run against it: sample one glyph's angle
// at a fixed rate, then read the strongest frequency off the spectrum:
//
//	f, _ := analysis.DominantFrequency(angles, 30)
//	period := 1 / f
package analysis
