package netio

import (
	"fmt"
)

// Peak assigns probability Prob to Class in one synthesized timestep.
type Peak struct {
	Class int
	Prob  float32
}

// Synthesize builds a matrix with one row per frame. Each frame's peaks get
// their probability and the remaining mass is spread evenly over the other
// classes.
func Synthesize(classes int, frames ...[]Peak) (*Matrix, error) {
	if classes <= 0 || len(frames) == 0 {
		return nil, ErrEmptyMatrix
	}
	m := NewMatrix(len(frames), classes)
	for t, frame := range frames {
		var mass float32
		for _, p := range frame {
			if p.Class < 0 || p.Class >= classes {
				m.Release()
				return nil, fmt.Errorf("frame %d: class %d out of range [0,%d)", t, p.Class, classes)
			}
			mass += p.Prob
		}
		if mass > 1.0001 {
			m.Release()
			return nil, fmt.Errorf("frame %d: peaks sum to %.4f", t, mass)
		}
		rest := float32(0)
		if others := classes - len(frame); others > 0 {
			rest = max(0, 1-mass) / float32(others)
		}
		row := m.F(t)
		for c := range row {
			row[c] = rest
		}
		for _, p := range frame {
			row[p.Class] = p.Prob
		}
	}
	return m, nil
}

// PeakedFrames expands a label sequence into frames: each label is held for
// stepsPerLabel timesteps and a null frame separates repeated labels so
// that CTC collapsing keeps both.
func PeakedFrames(labels []int, null, stepsPerLabel int, peak float32) [][]Peak {
	frames := make([][]Peak, 0, len(labels)*stepsPerLabel)
	prev := -1
	for _, l := range labels {
		if l == prev && l != null {
			frames = append(frames, []Peak{{Class: null, Prob: peak}})
		}
		for range stepsPerLabel {
			frames = append(frames, []Peak{{Class: l, Prob: peak}})
		}
		prev = l
	}
	return frames
}
