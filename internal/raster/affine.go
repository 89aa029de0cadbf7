package raster

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// snapTolerance absorbs the rounding left by sin/cos of quarter turns so
// that orientation transforms stay integral.
const snapTolerance = 1e-9

// Affine is a 2D affine transform acting on column vectors. Translate,
// Rotate and Scale append an operation that is applied to points before the
// existing transform, the same chaining order as a drawing context's CTM.
type Affine struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// NewAffine builds a transform from the first two rows of its matrix:
// x' = a*x + b*y + c, y' = d*x + e*y + f.
func NewAffine(a, b, c, d, e, f float64) Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		a, b, c,
		d, e, f,
		0, 0, 1,
	})}
}

// Translate prepends a translation by (tx, ty).
func (t Affine) Translate(tx, ty float64) Affine {
	return t.Mul(NewAffine(1, 0, tx, 0, 1, ty))
}

// Rotate prepends a counter-clockwise rotation by theta radians in a y-up
// space.
func (t Affine) Rotate(theta float64) Affine {
	s, c := math.Sincos(theta)
	return t.Mul(NewAffine(c, -s, 0, s, c, 0))
}

// Scale prepends an axis scale.
func (t Affine) Scale(sx, sy float64) Affine {
	return t.Mul(NewAffine(sx, 0, 0, 0, sy, 0))
}

// Mul returns the composition t·u, which applies u first.
func (t Affine) Mul(u Affine) Affine {
	var out mat.Dense
	out.Mul(t.m, u.m)
	snap(&out)
	return Affine{m: &out}
}

// Invert returns the inverse transform.
func (t Affine) Invert() (Affine, error) {
	var out mat.Dense
	if err := out.Inverse(t.m); err != nil {
		return Affine{}, fmt.Errorf("raster: transform not invertible: %w", err)
	}
	snap(&out)
	return Affine{m: &out}, nil
}

// Apply maps a point.
func (t Affine) Apply(x, y float64) (float64, float64) {
	return t.m.At(0, 0)*x + t.m.At(0, 1)*y + t.m.At(0, 2),
		t.m.At(1, 0)*x + t.m.At(1, 1)*y + t.m.At(1, 2)
}

// Aff3 returns the transform in the x/image matrix layout.
func (t Affine) Aff3() f64.Aff3 {
	return f64.Aff3{
		t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2),
		t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2),
	}
}

// Equal reports whether t and u match within tol.
func (t Affine) Equal(u Affine, tol float64) bool {
	return mat.EqualApprox(t.m, u.m, tol)
}

func (t Affine) String() string {
	a := t.Aff3()
	return fmt.Sprintf("[%g %g %g; %g %g %g]", a[0], a[1], a[2], a[3], a[4], a[5])
}

func snap(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if n := math.Round(v); math.Abs(v-n) < snapTolerance {
				if n == 0 {
					n = 0 // drop negative zero
				}
				m.Set(i, j, n)
			}
		}
	}
}
