package optimize

import (
	"math"
	"math/rand"
	"strconv"
)

// Limits applied when randomizing parameters with infinite bounds.
const (
	MIN = -10
	MAX = +10
)

// FloatParameter is a single named model parameter with box bounds.
type FloatParameter interface {
	Name() string
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
	// Fix pins the parameter to its current value; fixed
	// parameters are skipped by the optimizers.
	Fix()
	Fixed() bool
}

// NewFloatParameter is a constructor signature models use to register
// their parameters.
type NewFloatParameter func(*float64, string) FloatParameter

// FloatParameters is an ordered parameter collection.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names fills is (or a fresh slice) with parameter names.
func (p *FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(*p))
	} else {
		s = is
	}
	for i, par := range *p {
		s[i] = par.Name()
	}
	return
}

// Values fills iv (or a fresh slice) with parameter values.
func (p *FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(*p))
	} else {
		v = iv
	}
	for i, par := range *p {
		v[i] = par.Get()
	}
	return
}

// ValuesInRange reports whether every value respects its bounds.
func (p *FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(*p) {
		panic("incorrect number of parameters")
	}
	for i, par := range *p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all parameter values.
func (p *FloatParameters) SetValues(v []float64) {
	if len(v) != len(*p) {
		panic("incorrect number of parameters")
	}
	for i, par := range *p {
		par.Set(v[i])
	}
}

// Update copies values from another collection.
func (p *FloatParameters) Update(pSrc *FloatParameters) {
	for i := range *p {
		(*p)[i].Set((*pSrc)[i].Get())
	}
}

// Randomize draws every non-fixed parameter uniformly from its
// (possibly clipped) bounds.
func (p *FloatParameters) Randomize(rng *rand.Rand) {
	for _, par := range *p {
		if par.Fixed() {
			continue
		}
		min, max := clipBounds(par)
		par.Set(min + rng.Float64()*(max-min))
	}
}

// clipBounds replaces infinite bounds with the MIN/MAX fallbacks;
// finite user bounds are kept as-is.
func clipBounds(par FloatParameter) (min, max float64) {
	min, max = par.GetMin(), par.GetMax()
	if math.IsInf(min, -1) {
		min = MIN
	}
	if math.IsInf(max, +1) {
		max = MAX
	}
	return min, max
}

// InRange reports whether every parameter respects its bounds.
func (p *FloatParameters) InRange() bool {
	for _, par := range *p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// NamesString returns tab-separated parameter names.
func (p *FloatParameters) NamesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated parameter values.
func (p *FloatParameters) ValuesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// BasicFloatParameter is the default FloatParameter backed by a
// pointer into the model's own struct.
type BasicFloatParameter struct {
	*float64
	name     string
	min      float64
	max      float64
	fixed    bool
	onChange func()
}

// NewBasicFloatParameter creates an unbounded parameter.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64: par,
		name:    name,
		min:     math.Inf(-1),
		max:     math.Inf(+1),
	}
}

// BasicFloatParameterGenerator matches the NewFloatParameter
// signature.
func BasicFloatParameterGenerator(par *float64, name string) FloatParameter {
	return NewBasicFloatParameter(par, name)
}

func (p *BasicFloatParameter) Name() string { return p.name }

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'g', -1, 64)
}

func (p *BasicFloatParameter) SetMin(min float64) { p.min = min }
func (p *BasicFloatParameter) SetMax(max float64) { p.max = max }
func (p *BasicFloatParameter) GetMin() float64    { return p.min }
func (p *BasicFloatParameter) GetMax() float64    { return p.max }

func (p *BasicFloatParameter) SetOnChange(f func()) { p.onChange = f }

func (p *BasicFloatParameter) Get() float64 { return *p.float64 }

func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

// Fix pins the parameter at its current value.
func (p *BasicFloatParameter) Fix() {
	p.fixed = true
	p.min = *p.float64
	p.max = *p.float64
}

func (p *BasicFloatParameter) Fixed() bool { return p.fixed }

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	return v >= p.min && v <= p.max
}

func (p *BasicFloatParameter) InRange() bool {
	return *p.float64 >= p.min && *p.float64 <= p.max
}
