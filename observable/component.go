package observable

import (
	"fmt"
	"strings"

	"github.com/hupe1980/spinobs/container"
)

// Component selects one entry of the 3x3 spin correlation tensor by its
// two-letter spin-component label, or the full tensor.
type Component uint8

const (
	ComponentXX Component = iota
	ComponentXY
	ComponentXZ
	ComponentYX
	ComponentYY
	ComponentYZ
	ComponentZX
	ComponentZY
	ComponentZZ
	// ComponentAll requests the full 3x3 matrix per target. Scalar
	// reductions (structure factors) use the trace.
	ComponentAll
)

var componentNames = [...]string{"xx", "xy", "xz", "yx", "yy", "yz", "zx", "zy", "zz", "all"}

// ParseComponent maps a component label ("xx" .. "zz", "all",
// case-insensitive) to its Component.
func ParseComponent(name string) (Component, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range componentNames {
		if s == n {
			return Component(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
}

func (c Component) String() string {
	if int(c) < len(componentNames) {
		return componentNames[c]
	}
	return fmt.Sprintf("Component(%d)", uint8(c))
}

func (c Component) valid() bool {
	return c <= ComponentAll
}

// Reduce collapses a tensor to the selected entry, or to its trace when
// the full tensor is requested.
func (c Component) Reduce(t container.Tensor) float64 {
	if c == ComponentAll {
		return t.Trace()
	}
	return t[int(c)/3][int(c)%3]
}
