package geom

import (
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Identity3 returns the identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m*o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// Apply returns m*v.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose returns the transposed matrix, which is the inverse of a rotation.
func (m Mat3) Transpose() Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

func rotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func rotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func rotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Isometry is a rigid transform: a rotation followed by a translation.
//
// It maps a point p from the local frame of a node to the enclosing frame as
// R·p + t. The zero value is not usable, use Identity or NewIsometry.
type Isometry struct {
	translation Vec3
	rotation    Mat3
}

// Identity returns the isometry that leaves every point in place.
func Identity() Isometry {
	return Isometry{rotation: Identity3()}
}

// NewIsometry builds an isometry from a translation (metres) and three
// rotation angles applied about x, then y, then z.
func NewIsometry(translation Vec3, rx, ry, rz units.Angle) Isometry {
	r := rotZ(rz.Radians()).Mul(rotY(ry.Radians())).Mul(rotX(rx.Radians()))
	return Isometry{translation: translation, rotation: r}
}

// Translation returns the translation part.
func (i Isometry) Translation() Vec3 {
	return i.translation
}

// Rotation returns the rotation matrix.
func (i Isometry) Rotation() Mat3 {
	return i.rotation
}

// Angles recovers the x, y, z rotation angles used by NewIsometry.
func (i Isometry) Angles() (rx, ry, rz units.Angle) {
	r := i.rotation
	sy := -r[2][0]
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	ry = units.Radian(math.Asin(sy))
	if math.Abs(sy) < 1-1e-12 {
		rx = units.Radian(math.Atan2(r[2][1], r[2][2]))
		rz = units.Radian(math.Atan2(r[1][0], r[0][0]))
		return rx, ry, rz
	}
	// gimbal lock: fold everything into rz
	rx = 0
	rz = units.Radian(math.Atan2(-r[0][1], r[1][1]))
	return rx, ry, rz
}

// TransformPoint maps a local point into the enclosing frame.
func (i Isometry) TransformPoint(p Vec3) Vec3 {
	return i.rotation.Apply(p).Add(i.translation)
}

// TransformVector rotates a direction into the enclosing frame.
func (i Isometry) TransformVector(v Vec3) Vec3 {
	return i.rotation.Apply(v)
}

// InversePoint maps a point of the enclosing frame into the local frame.
func (i Isometry) InversePoint(p Vec3) Vec3 {
	return i.rotation.Transpose().Apply(p.Sub(i.translation))
}

// InverseVector rotates a direction of the enclosing frame into the local frame.
func (i Isometry) InverseVector(v Vec3) Vec3 {
	return i.rotation.Transpose().Apply(v)
}

// Inverse returns the isometry undoing i.
func (i Isometry) Inverse() Isometry {
	rt := i.rotation.Transpose()
	return Isometry{
		translation: rt.Apply(i.translation).Negate(),
		rotation:    rt,
	}
}

// Compose returns the isometry applying o first and then i.
func (i Isometry) Compose(o Isometry) Isometry {
	return Isometry{
		translation: i.rotation.Apply(o.translation).Add(i.translation),
		rotation:    i.rotation.Mul(o.rotation),
	}
}

// IsIdentity reports whether the isometry is the identity within tol.
func (i Isometry) IsIdentity(tol float64) bool {
	if !i.translation.ApproxEqual(Vec3{}, tol) {
		return false
	}
	id := Identity3()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(i.rotation[r][c]-id[r][c]) > tol {
				return false
			}
		}
	}
	return true
}

// MirrorZ conjugates the isometry with the reflection z -> -z. It describes
// the same placement as seen by light travelling in the opposite direction.
func (i Isometry) MirrorZ() Isometry {
	sign := [3]float64{1, 1, -1}
	var r Mat3
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			r[a][b] = i.rotation[a][b] * sign[a] * sign[b]
		}
	}
	return Isometry{translation: i.translation.FlipZ(), rotation: r}
}

// IsometrySpec is the serialisable form of an Isometry.
type IsometrySpec struct {
	Translation [3]float64 `yaml:"translation" json:"translation"`
	Rotation    [3]float64 `yaml:"rotation" json:"rotation"`
}

// Spec returns the serialisable form of the isometry (metres and radians).
func (i Isometry) Spec() IsometrySpec {
	rx, ry, rz := i.Angles()
	return IsometrySpec{
		Translation: [3]float64{i.translation.X, i.translation.Y, i.translation.Z},
		Rotation:    [3]float64{rx.Radians(), ry.Radians(), rz.Radians()},
	}
}

// Isometry rebuilds the isometry described by the spec.
func (s IsometrySpec) Isometry() Isometry {
	return NewIsometry(
		Vec3{s.Translation[0], s.Translation[1], s.Translation[2]},
		units.Radian(s.Rotation[0]), units.Radian(s.Rotation[1]), units.Radian(s.Rotation[2]),
	)
}
