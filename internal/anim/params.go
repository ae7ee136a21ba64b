package anim

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

var ErrUnknownKind = errors.New("anim: unknown kind")

// Params are the four generic slots every kernel reads. Each kernel gives
// them its own meaning; MaxLength scales drawn glyph length for all kinds.
type Params struct {
	Frequency  float32 `yaml:"frequency" json:"frequency"`
	Amplitude  float32 `yaml:"amplitude" json:"amplitude"`
	Elasticity float32 `yaml:"elasticity" json:"elasticity"`
	MaxLength  float32 `yaml:"max_length" json:"max_length"`
}

func (p Params) Array() [4]float32 {
	return [4]float32{p.Frequency, p.Amplitude, p.Elasticity, p.MaxLength}
}

func ParamsFromArray(a [4]float32) Params {
	return Params{Frequency: a[0], Amplitude: a[1], Elasticity: a[2], MaxLength: a[3]}
}

// ParamSpec describes the adjustable range of one slot.
type ParamSpec struct {
	Name string
	Min  float32
	Max  float32
	Step float32
}

// ParamSpecs lists the slots in uniform order.
var ParamSpecs = [4]ParamSpec{
	{Name: "frequency", Min: 0, Max: 10, Step: 0.1},
	{Name: "amplitude", Min: 0, Max: 2 * math32.Pi, Step: 0.05},
	{Name: "elasticity", Min: 0, Max: 5, Step: 0.05},
	{Name: "max_length", Min: 0.1, Max: 3, Step: 0.05},
}

// Clamp limits every slot to its spec range.
func (p Params) Clamp() Params {
	a := p.Array()
	for i, s := range ParamSpecs {
		a[i] = math32.Max(s.Min, math32.Min(s.Max, a[i]))
	}
	return ParamsFromArray(a)
}

// Set assigns slot i.
func (p Params) Set(i int, v float32) Params {
	a := p.Array()
	if i >= 0 && i < len(a) {
		a[i] = v
	}
	return ParamsFromArray(a)
}

func (p Params) String() string {
	return fmt.Sprintf("f=%.2f a=%.2f e=%.2f l=%.2f", p.Frequency, p.Amplitude, p.Elasticity, p.MaxLength)
}
