// Package qc applies min/max quality-control bounds to archive records.
package qc

import (
	"fmt"

	"github.com/i474232898/wxarchive/internal/config"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

// Violation describes a value removed by quality control.
type Violation struct {
	ObsType string
	Value   float64
	Min     float64
	Max     float64
	Unit    units.Unit
}

func (v Violation) String() string {
	return fmt.Sprintf("%s value %g outside [%g, %g] %s", v.ObsType, v.Value, v.Min, v.Max, v.Unit)
}

// Checker holds bounds pre-converted into every unit system.
type Checker struct {
	bounds map[units.System]map[string]config.Bounds
}

// New validates bounds and prepares a Checker.
func New(minMax map[string]config.Bounds) (*Checker, error) {
	c := &Checker{bounds: make(map[units.System]map[string]config.Bounds)}
	for _, system := range []units.System{units.US, units.Metric, units.MetricWX} {
		c.bounds[system] = make(map[string]config.Bounds, len(minMax))
		for obs, b := range minMax {
			target, err := units.UnitOf(system, obs)
			if err != nil {
				return nil, fmt.Errorf("qc %s: %w", obs, err)
			}
			lo, err := units.Convert(b.Min, b.Unit, target)
			if err != nil {
				return nil, fmt.Errorf("qc %s: %w", obs, err)
			}
			hi, err := units.Convert(b.Max, b.Unit, target)
			if err != nil {
				return nil, fmt.Errorf("qc %s: %w", obs, err)
			}
			c.bounds[system][obs] = config.Bounds{Min: lo, Max: hi, Unit: target}
		}
	}
	return c, nil
}

// Apply removes every value of rec outside its bounds and reports them.
func (c *Checker) Apply(rec weather.Record) []Violation {
	bounds, ok := c.bounds[rec.UsUnits]
	if !ok {
		return nil
	}
	var violations []Violation
	for obs, b := range bounds {
		v, present := rec.Get(obs)
		if !present {
			continue
		}
		if v < b.Min || v > b.Max {
			rec.Clear(obs)
			violations = append(violations, Violation{ObsType: obs, Value: v, Min: b.Min, Max: b.Max, Unit: b.Unit})
		}
	}
	return violations
}
