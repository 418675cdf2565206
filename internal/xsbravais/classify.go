// Public domain.

package xsbravais

import (
	"errors"
	"fmt"
)

// ErrSettingNumber is returned when the last setting of a list is not
// setting number 1.
var ErrSettingNumber = errors.New("last setting is not triclinic")

// IdentifyLikelySolutions sets Recommended on the settings of l by
// comparing each RMSD with the triclinic RMSD.  The ratio tolerated
// depends on the angular deviation of the setting and on the minimum
// correlation under its symmetry operations.
//
// Settings without a refinement result are not recommended.  If the
// triclinic setting has no result no setting is recommended.
func IdentifyLikelySolutions(l *SettingsList) error {
	if l.Len() == 0 {
		return nil
	}
	tri := l.Triclinic()
	if tri.SettingNumber != 1 {
		return fmt.Errorf("%w: setting number %d", ErrSettingNumber, tri.SettingNumber)
	}
	for _, s := range l.settings {
		s.Recommended = false
	}
	if tri.Result == nil {
		return nil
	}
	rmsd1 := tri.Result.RMSD
	for _, s := range l.settings {
		if s.Result != nil {
			s.Recommended = likely(s.AngularDeviation(), s.Result.MinCC, s.Result.RMSD, rmsd1)
		}
	}
	return nil
}

// likely applies the tiered rules to one setting.
func likely(delta float64, minCC *float64, rmsd, rmsd1 float64) bool {
	weak := func(c float64) bool { return minCC == nil || *minCC < c }
	switch {
	case delta < .5:
		return !(weak(.5) && rmsd > 1.5*rmsd1)
	case weak(.7) && rmsd > 2*rmsd1:
		return false
	}
	return rmsd <= 3*rmsd1
}
