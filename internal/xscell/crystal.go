// Public domain.

package xscell

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpaceGroup identifies a space group and carries the rotation parts of its
// symmetry operators in the setting of the cell it is attached to.
type SpaceGroup struct {
	Symbol    string
	Number    int
	Rotations []IMat3 // acting on fractional coordinates; identity first
}

// P1 is the triclinic space group without symmetry.
func P1() SpaceGroup {
	return SpaceGroup{Symbol: "P 1", Number: 1, Rotations: []IMat3{IIdentity()}}
}

// Crystal is an oriented lattice with a space group.
type Crystal struct {
	U, B       Mat3
	SpaceGroup SpaceGroup
}

// NewCrystal builds a crystal with orientation u from a unit cell.
func NewCrystal(uc UnitCell, u Mat3, sg SpaceGroup) (*Crystal, error) {
	b, err := BFromGstar(uc.Gstar())
	if err != nil {
		return nil, err
	}
	return &Crystal{U: u, B: b, SpaceGroup: sg}, nil
}

// FromA decomposes a setting matrix into orientation and metric.
func FromA(a Mat3, sg SpaceGroup) (*Crystal, error) {
	b, err := BFromGstar(GstarOf(a))
	if err != nil {
		return nil, err
	}
	bi, ok := b.Inverse()
	if !ok {
		return nil, ErrInvalidCell
	}
	u, err := NearestRotation(a.Mul(bi))
	if err != nil {
		return nil, err
	}
	return &Crystal{U: u, B: b, SpaceGroup: sg}, nil
}

// A returns the setting matrix U·B.
func (c *Crystal) A() Mat3 { return c.U.Mul(c.B) }

// UnitCell returns the direct cell described by B.
func (c *Crystal) UnitCell() (UnitCell, error) {
	return CellFromGstar(GstarOf(c.B))
}

// Copy returns an independent copy.
func (c *Crystal) Copy() *Crystal {
	cp := *c
	cp.SpaceGroup.Rotations = append([]IMat3(nil), c.SpaceGroup.Rotations...)
	return &cp
}

// ChangeBasis returns the same oriented lattice described in the basis of
// op.  The space group is carried over unchanged; callers assign the one
// matching the new setting.
func (c *Crystal) ChangeBasis(op ChangeOfBasisOp) (*Crystal, error) {
	a := c.A().Mul(op.InverseMatrix().T())
	return FromA(a, c.SpaceGroup)
}

// NearestRotation returns the proper rotation closest to m in the
// Frobenius norm.
func NearestRotation(m Mat3) (Mat3, error) {
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(3, 3, m.flat()), mat.SVDFull) {
		return Mat3{}, errors.New("SVD failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	var rot Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot[i][j] = r.At(i, j)
		}
	}
	return rot, nil
}

func (c *Crystal) String() string {
	uc, err := c.UnitCell()
	if err != nil {
		return fmt.Sprintf("crystal (%v)", err)
	}
	return fmt.Sprintf("%s %s", c.SpaceGroup.Symbol, uc)
}
