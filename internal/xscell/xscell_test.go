// Public domain.

package xscell_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

func ExampleChangeOfBasisOp_AsABC() {
	op, _ := xscell.NewChangeOfBasisOp(xscell.IMat3{
		{1, -1, 0},
		{1, 1, 0},
		{0, 0, 2},
	})
	fmt.Println(xscell.IdentityOp().AsABC())
	fmt.Println(op.AsABC())
	fmt.Println(op.Det())
	// Output:
	// a,b,c
	// a+b,-a+b,2*c
	// 4
}

func TestParseABC(t *testing.T) {
	for _, s := range []string{"a,b,c", "a+b,-a+b,2*c", "-b,a,c", "c,a,b", "a-b+c,2*a+3*b,-c"} {
		op, err := xscell.ParseABC(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, op.AsABC())
	}
	_, err := xscell.ParseABC("a,b")
	assert.Error(t, err)
	_, err = xscell.ParseABC("a,a,c")
	assert.Error(t, err)
}

func TestUnitCell(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90})
	assert.InDelta(t, 1000, uc.Volume(), 1e-9)
	assert.InDelta(t, 0.01, uc.DStarSq([3]int{1, 0, 0}), 1e-12)
	assert.InDelta(t, 10/math.Sqrt(3), uc.D([3]int{1, 1, 1}), 1e-9)
	assert.Equal(t, "(10.000, 10.000, 10.000, 90.00, 90.00, 90.00)", uc.String())

	_, err := xscell.FromParameters([6]float64{10, 10, 10, 120, 120, 120})
	assert.ErrorIs(t, err, xscell.ErrInvalidCell)
	_, err = xscell.FromParameters([6]float64{0, 10, 10, 90, 90, 90})
	assert.ErrorIs(t, err, xscell.ErrInvalidCell)
}

func TestChangeBasisCell(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90})
	op, err := xscell.ParseABC("a+b,-a+b,c")
	require.NoError(t, err)
	nc, err := uc.ChangeBasis(op)
	require.NoError(t, err)
	p := nc.Parameters()
	assert.InDelta(t, 10*math.Sqrt2, p[0], 1e-9)
	assert.InDelta(t, 10*math.Sqrt2, p[1], 1e-9)
	assert.InDelta(t, 90, p[5], 1e-9)
	assert.InDelta(t, 2000, nc.Volume(), 1e-6)
	// Miller indices follow the transpose
	assert.Equal(t, [3]int{1, -1, 0}, op.ApplyMiller([3]int{1, 0, 0}))
}

func TestBFromGstar(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 12, 15, 80, 95, 105})
	b, err := xscell.BFromGstar(uc.Gstar())
	require.NoError(t, err)
	assert.Zero(t, b[0][1])
	assert.Zero(t, b[0][2])
	assert.Zero(t, b[1][2])
	g := xscell.GstarOf(b)
	for i, v := range uc.Gstar() {
		assert.InDelta(t, v, g[i], 1e-12)
	}
	back, err := xscell.CellFromGstar(g)
	require.NoError(t, err)
	for i, v := range uc.Parameters() {
		assert.InDelta(t, v, back.Parameters()[i], 1e-9)
	}

	_, err = xscell.BFromGstar([6]float64{0.01, 0.01, 0.01, 0, 0, 0.02})
	assert.True(t, errors.Is(err, xscell.ErrSingularG1))
	_, err = xscell.BFromGstar([6]float64{0.01, 0.01, 0.01, 0.02, 0, 0})
	assert.True(t, errors.Is(err, xscell.ErrSingularG0))
	assert.True(t, xscell.IsDegenerate(fmt.Errorf("refining: %w", err)))
}

func TestCrystalChangeBasis(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 11, 12, 90, 90, 90})
	u := xscell.RotX(0.3).Mul(xscell.RotY(-0.2)).Mul(xscell.RotZ(1.1))
	c, err := xscell.NewCrystal(uc, u, xscell.P1())
	require.NoError(t, err)
	op, err := xscell.ParseABC("b,c,a")
	require.NoError(t, err)
	nc, err := c.ChangeBasis(op)
	require.NoError(t, err)
	cell, err := nc.UnitCell()
	require.NoError(t, err)
	assert.InDelta(t, 11, cell.Parameters()[0], 1e-9)
	assert.InDelta(t, 12, cell.Parameters()[1], 1e-9)
	assert.InDelta(t, 10, cell.Parameters()[2], 1e-9)
	// the same reflection lands on the same reciprocal lattice point
	h := [3]int{1, 2, 3}
	r0 := c.A().MulIVec(h)
	r1 := nc.A().MulIVec(op.ApplyMiller(h))
	for i := range r0 {
		assert.InDelta(t, r0[i], r1[i], 1e-12)
	}
	assert.InDelta(t, 1, nc.U.Det(), 1e-12)
}

func TestReduce(t *testing.T) {
	for _, p := range [][6]float64{
		{10, 10, 10, 90, 90, 90},
		{10, 10, 10, 70, 70, 70},
		{8.660254, 8.660254, 8.660254, 109.4712, 109.4712, 109.4712},
	} {
		uc := xscell.MustParameters(p)
		_, op, err := xscell.Reduce(uc)
		require.NoError(t, err)
		assert.True(t, op.IsIdentity(), "%v -> %s", p, op)
	}
	// a cell with a long non-reduced axis
	uc := xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90})
	op, _ := xscell.ParseABC("a,b,a+b+c")
	long, err := uc.ChangeBasis(op)
	require.NoError(t, err)
	red, rop, err := xscell.Reduce(long)
	require.NoError(t, err)
	assert.False(t, rop.IsIdentity())
	assert.Equal(t, 1, abs(rop.Det()))
	rp := red.Parameters()
	for _, v := range rp[:3] {
		assert.InDelta(t, 10, v, 1e-6)
	}
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func TestNearestRotation(t *testing.T) {
	r := xscell.RotZ(0.4).Mul(xscell.RotX(-1.2))
	n := r
	n[0][1] += 1e-3
	got, err := xscell.NearestRotation(n)
	require.NoError(t, err)
	assert.InDelta(t, 1, got.Det(), 1e-12)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, r[i][j], got[i][j], 1e-3)
		}
	}
}
