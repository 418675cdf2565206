// Public domain.

package xsres

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Plot is a plotly style figure.
type Plot struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one series of a Plot.
type Trace struct {
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	Type string    `json:"type"`
	Name string    `json:"name"`
	Mode string    `json:"mode,omitempty"`
	Line *Line     `json:"line,omitempty"`
}

type Line struct {
	Color string `json:"color"`
	Dash  string `json:"dash,omitempty"`
}

type Layout struct {
	Title string `json:"title"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

type Axis struct {
	Title     string    `json:"title"`
	TickVals  []float64 `json:"tickvals,omitempty"`
	TickText  []string  `json:"ticktext,omitempty"`
	RangeMode string    `json:"rangemode,omitempty"`
	Range     []float64 `json:"range,omitempty"`
}

var plotTitles = map[Metric]string{
	CCHalf:             "CC<sub>½</sub>",
	CCRef:              "CC<sub>ref</sub>",
	MISigma:            "Merged <I/σ(I)>",
	ISigma:             "Unmerged <I/σ(I)>",
	IMeanOverSigmaMean: "&lt;I&gt;/<σ(I)>",
	RMerge:             "R<sub>merge</sub> ",
	Completeness:       "Completeness",
}

// DStarSqToDTicks returns n evenly spaced d*² tick positions from the
// lowest d*² and their labels as d.
func DStarSqToDTicks(dStarSq []float64, n int) (vals []float64, text []string) {
	if len(dStarSq) == 0 || n < 1 {
		return nil, nil
	}
	lo, hi := floats.Min(dStarSq), floats.Max(dStarSq)
	step := (hi - lo) / float64(n)
	for i := 0; i < n; i++ {
		v := lo + float64(i)*step
		vals = append(vals, v)
		if v > 0 {
			text = append(text, fmt.Sprintf("%.2f", 1/math.Sqrt(v)))
		} else {
			text = append(text, "∞")
		}
	}
	return
}

// PlotResult returns the plot of r: observed and fitted values against
// d*² with the limit marked.  CC1/2 plots include critical values.
func PlotResult(m Metric, r *Result) Plot {
	title := plotTitles[m]
	vals, text := DStarSqToDTicks(r.DStarSq, 5)
	p := Plot{Layout: Layout{
		Title: title + " vs. resolution",
		XAxis: Axis{Title: "Resolution (Å)", TickVals: vals, TickText: text},
		YAxis: Axis{Title: title},
	}}
	fit := Trace{X: r.DStarSq, Y: r.YFit, Type: "scatter", Name: "y_fit",
		Line: &Line{Color: "rgb(47, 79, 79)"}}
	if m == CCHalf {
		p.Data = append(p.Data, Trace{X: r.DStarSq, Y: r.YObs, Type: "scatter",
			Name: title, Mode: "lines", Line: &Line{Color: "rgb(31, 119, 180)"}})
		if r.CriticalValues != nil {
			p.Data = append(p.Data, Trace{X: r.DStarSq, Y: r.CriticalValues, Type: "scatter",
				Name: title + " critical value",
				Line: &Line{Color: "rgb(31, 119, 180)", Dash: "dot"}})
		}
		fit.Name = title + " fit"
		lo := 1.
		if len(r.YObs) > 0 {
			lo = math.Min(floats.Min(r.YObs), lo)
		}
		p.Layout.YAxis.Range = []float64{lo, 1}
	} else {
		p.Data = append(p.Data, Trace{X: r.DStarSq, Y: r.YObs, Type: "scatter", Name: "y_obs"})
		p.Layout.YAxis.RangeMode = "tozero"
	}
	if r.YFit != nil {
		p.Data = append(p.Data, fit)
	}
	if r.DMin > 0 {
		top := 1.
		if m != CCHalf {
			for _, y := range [][]float64{r.YObs, r.YFit} {
				if len(y) > 0 {
					top = math.Max(top, floats.Max(y))
				}
			}
		}
		s := 1 / (r.DMin * r.DMin)
		p.Data = append(p.Data, Trace{
			X:    []float64{s, s},
			Y:    []float64{0, top},
			Type: "scatter",
			Name: fmt.Sprintf("d_min = %.2f Å", r.DMin),
			Mode: "lines",
			Line: &Line{Color: "rgb(169, 169, 169)", Dash: "dot"},
		})
	}
	return p
}
