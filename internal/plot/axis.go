package plot

import "fmt"

// Axis is one selectable plot variable.
type Axis int

const (
	X1 Axis = iota
	X2
	X3
	Time
)

// Axes lists the choices in menu order.
var Axes = []Axis{X1, X2, X3, Time}

var axisNames = [...]string{"x1", "x2", "x3", "t"}

func (a Axis) String() string {
	if a < X1 || a > Time {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// Species returns the state index for a population axis.
func (a Axis) Species() (int, bool) {
	if a >= X1 && a <= X3 {
		return int(a), true
	}
	return 0, false
}

// Next cycles through Axes.
func (a Axis) Next() Axis { return (a + 1) % Axis(len(Axes)) }

func ParseAxis(s string) (Axis, error) {
	for i, name := range axisNames {
		if s == name {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q (want x1, x2, x3 or t)", s)
}

func (a Axis) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
