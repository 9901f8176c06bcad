package optic

import (
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Frame places a node of a given length in the unfolded ray frame for one
// direction of travel. Light travelling backwards sees the node mirrored at
// z = length/2.
type Frame struct {
	Iso    geom.Isometry
	Length units.Length
}

// NewFrame returns the frame of a node with placement iso and the given
// length for direction d.
func NewFrame(iso geom.Isometry, length units.Length, d Direction) Frame {
	if d == Forward {
		return Frame{Iso: iso, Length: length}
	}
	shift := geom.NewIsometry(geom.NewVec3(0, 0, length.Meters()), 0, 0, 0)
	return Frame{Iso: shift.Compose(iso.MirrorZ()).Compose(shift.Inverse()), Length: length}
}

// Enter maps a bundle arriving at the entrance plane into the node frame.
func (f Frame) Enter(b *ray.Bundle) *ray.Bundle {
	return b.InverseTransform(f.Iso)
}

// Leave maps a transmitted bundle from the node frame to the frame whose
// origin is the exit plane of the node.
func (f Frame) Leave(b *ray.Bundle) *ray.Bundle {
	out := b.Transform(f.Iso)
	out.Shift(-f.Length)
	return out
}

// LeaveReflected unfolds a bundle reflected in the node frame so that it
// travels along +z again, and maps it to the frame of the entrance plane.
func (f Frame) LeaveReflected(b *ray.Bundle) *ray.Bundle {
	return b.FlipZ().Transform(f.Iso)
}

// Turn converts a bundle reflected backwards inside the node frame of one
// direction into the node frame of the opposite direction.
func (f Frame) Turn(b *ray.Bundle) *ray.Bundle {
	out := b.FlipZ()
	out.Shift(f.Length)
	return out
}
