// Public domain.

package xscell

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChangeOfBasisOp maps a lattice basis to an equivalent one.  The columns
// of its matrix are the new basis vectors in old coordinates.
type ChangeOfBasisOp struct {
	m IMat3
}

// NewChangeOfBasisOp wraps m, which must be non-singular.
func NewChangeOfBasisOp(m IMat3) (ChangeOfBasisOp, error) {
	if m.Det() == 0 {
		return ChangeOfBasisOp{}, errors.New("singular change of basis")
	}
	return ChangeOfBasisOp{m}, nil
}

// IdentityOp returns "a,b,c".
func IdentityOp() ChangeOfBasisOp {
	return ChangeOfBasisOp{IIdentity()}
}

// Matrix returns the basis matrix.
func (op ChangeOfBasisOp) Matrix() IMat3 { return op.m }

// Det returns the ratio of new to old cell volume.
func (op ChangeOfBasisOp) Det() int { return op.m.Det() }

// IsIdentity reports whether op leaves the basis unchanged.
func (op ChangeOfBasisOp) IsIdentity() bool { return op.m.IsIdentity() }

// Then returns the operator applying op first and next second, where next
// is expressed in the basis produced by op.
func (op ChangeOfBasisOp) Then(next ChangeOfBasisOp) ChangeOfBasisOp {
	return ChangeOfBasisOp{op.m.Mul(next.m)}
}

// ApplyMiller reindexes h into the new basis.
func (op ChangeOfBasisOp) ApplyMiller(h [3]int) [3]int {
	return op.m.T().MulVec(h)
}

// InverseMatrix returns the real inverse of the basis matrix.
func (op ChangeOfBasisOp) InverseMatrix() Mat3 {
	inv, _ := op.m.Float().Inverse()
	return inv
}

// AsABC formats the operator as the new basis vectors in terms of the old,
// for example "a,b,c" or "a+b,-a+b,c".
func (op ChangeOfBasisOp) AsABC() string {
	parts := make([]string, 3)
	for j := 0; j < 3; j++ {
		var sb strings.Builder
		for i, l := range "abc" {
			k := op.m[i][j]
			switch {
			case k == 0:
				continue
			case k < 0:
				sb.WriteByte('-')
				k = -k
			case sb.Len() > 0:
				sb.WriteByte('+')
			}
			if k != 1 {
				sb.WriteString(strconv.Itoa(k))
				sb.WriteByte('*')
			}
			sb.WriteRune(l)
		}
		parts[j] = sb.String()
	}
	return strings.Join(parts, ",")
}

func (op ChangeOfBasisOp) String() string { return op.AsABC() }

var rxTerm = regexp.MustCompile(`^([+-]?)(\d*)\*?([abc])`)

// ParseABC parses the format produced by AsABC.
func ParseABC(s string) (ChangeOfBasisOp, error) {
	cols := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	if len(cols) != 3 {
		return ChangeOfBasisOp{}, fmt.Errorf("change of basis %q: want 3 vectors", s)
	}
	var m IMat3
	for j, col := range cols {
		if col == "" {
			return ChangeOfBasisOp{}, fmt.Errorf("change of basis %q: empty vector", s)
		}
		for col != "" {
			t := rxTerm.FindStringSubmatch(col)
			if t == nil {
				return ChangeOfBasisOp{}, fmt.Errorf("change of basis %q: bad term %q", s, col)
			}
			k := 1
			if t[2] != "" {
				k, _ = strconv.Atoi(t[2])
			}
			if t[1] == "-" {
				k = -k
			}
			m[strings.Index("abc", t[3])][j] += k
			col = col[len(t[0]):]
		}
	}
	return NewChangeOfBasisOp(m)
}
