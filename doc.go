/*
Command xtalsym determines the lattice symmetry of an indexed diffraction
still and estimates resolution limits of unmerged intensity data.

Contents

  Program overview
  Installing
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

The bravais command takes a crystal indexed in a triclinic, reduced cell
together with its indexed reflections.  It lists every Bravais lattice whose
metric is compatible with the cell, refines the crystal constrained to each
of them, and marks the solutions likely to be correct.

The resolution command takes unmerged intensities and reports the resolution
at which statistics such as CC1/2 or merged I/σ(I) fall to a threshold.

The simulate command writes synthetic data sets for both.

Sample run:

  xtalsym simulate still
  xtalsym bravais

writes xtalsym.expt and xtalsym.refl for a 10 Angstrom cubic cell, then
prints a table like this,

  Solution  Metric fit  rmsd   min/max cc  #spots  lattice  unit_cell ...
  *     22      0.0000  0.031  0.998/0.999    350       cP  10.00 ...
  ...
  *      1      0.0000  0.030      -/-          350       aP  10.00 ...
  * = recommended solution

Metric fit is the largest deviation in degrees of a lattice twofold from an
exact twofold.  rmsd is the root mean square spot position residual in mm
after refinement.  min/max cc are correlation coefficients of I/σ(I) between
reflections related by the rotations of the lattice.


Installing

With Go installed,

    go install github.com/xtalsym/xtalsym@latest


Command line usage

  xtalsym bravais [experiments] [reflections]
  xtalsym resolution [experiments] [reflections]
  xtalsym simulate still [experiments] [reflections]
  xtalsym simulate unmerged [experiments] [reflections]
  xtalsym version

File names default to xtalsym.expt and xtalsym.refl in the current
directory.  Flags common to all commands:

  -c, --config <file>   YAML configuration file
  -v, --verbose         log debugging detail

Each command lists its own flags with -h.  Log messages go to stderr,
results to stdout.  Errors terminate the program with a one line message
and non-zero exit status.


Configuration

Parameters are set from built in defaults, then the configuration file,
then flags.  The configuration file is YAML with one section per command.
Keys not present keep their defaults.  Unknown keys are an error.

  bravais:
    lepage_max_delta: 5
    nproc: 0              # 0 for all available processors
    cc_n_bins: 0          # 0 for unbinned correlation coefficients
    best_monoclinic_beta: true
    refinement:
      outlier:
        algorithm: auto   # null, tukey or auto
        tukey_iqr_multiplier: 1.5
      max_iterations: 100
      tolerance: 1e-10
  resolution:
    cc_half: 0.3
    cc_ref: 0.1
    isigma: 0.25
    misigma: 1
    rmerge: null          # null or 0 leaves a statistic out
    completeness: null
    i_mean_over_sigma_mean: null
    cc_half_method: half_dataset  # or sigma_tau
    cc_half_significance_level: 0.1
    cc_half_fit: tanh     # or polynomial
    nbins: 100
    reflections_per_bin: 10
    binning_method: counting_sorted  # or volume
    anomalous: false
    space_group: ""
    seed: 0

Sections still and unmerged hold the parameters of the simulations.


File formats

Experiment files are YAML listing for each experiment the wavelength in
Angstroms, the detector distance in mm, the space group symbol, the six
unit cell parameters and the 3x3 orientation matrix U.

Reflection files are binary, written with encoding/gob.  Each reflection
carries Miller indices, observed spot position in mm, intensity, variance
and flags.


Algorithm outline

Bravais:

1.  The metric subgroups of the reduced cell are found from its lattice
twofold axes.  Each group of twofolds closed under multiplication gives a
candidate lattice with a change of basis to its conventional setting.

2.  The crystal orientation is constrained to each candidate by averaging
the metric over the lattice rotations.

3.  Candidates are refined in parallel against spot positions, with
Levenberg-Marquardt least squares over orientation and symmetry
constrained cell parameters.  Results are collected in candidate order.

4.  The triclinic refinement gives the reference rmsd.  A candidate is
recommended when its rmsd is not much worse and, for larger metric
deviations, its symmetry related intensities correlate.

Resolution:

1.  Observations are merged under the point group and statistics are
computed in resolution shells of equal reflection count.

2.  A curve is fitted to each statistic against d*²: tanh for CC1/2 and
CCref, polynomials in log(y) for the I/σ statistics, in log(1/y) for
Rmerge, and a plain polynomial for completeness.

3.  The limit is where the fitted curve first crosses the threshold.  If no
shell falls to the threshold the limit is the highest resolution shell.

-------------
Public domain.
*/
package main
