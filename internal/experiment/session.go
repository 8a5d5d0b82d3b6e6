package experiment

import (
	"context"
	"strconv"
	"strings"

	"github.com/san-kum/popsim/internal/models"
)

// Session is the state behind one interactive lab: the coefficient set being
// edited and the most recent run. It is not safe for concurrent use.
type Session struct {
	coef models.Coefficients
	opts Options
	last *Result
}

func NewSession(c models.Coefficients, opts Options) *Session {
	return &Session{coef: c, opts: opts}
}

func (s *Session) Coefficients() models.Coefficients { return s.coef }

func (s *Session) Options() Options { return s.opts }

// SetCoefficient replaces one value. Unknown names and values that are not
// strictly positive leave the set unchanged.
func (s *Session) SetCoefficient(name string, value float64) error {
	c, err := s.coef.With(name, value)
	if err != nil {
		s.opts.logger().Debug("coefficient rejected", "name", name, "value", value, "err", err)
		return err
	}
	s.coef = c
	return nil
}

// SetCoefficientText parses user input and applies it. It reports whether
// the set changed; blank, unparsable and rejected input is dropped silently.
func (s *Session) SetCoefficientText(name, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return false
	}
	return s.SetCoefficient(name, v) == nil
}

// SetIntegrator switches the integrator used by later runs.
func (s *Session) SetIntegrator(name string) error {
	if _, err := NewRegistry().Factory(name); err != nil {
		return err
	}
	s.opts.Integrator = name
	return nil
}

// Run simulates the current set. A failed run keeps the previous result.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	res, err := Run(ctx, s.coef, s.opts)
	if err != nil {
		return nil, err
	}
	s.last = res
	return res, nil
}

// Last returns the most recent successful run, nil before the first one.
func (s *Session) Last() *Result { return s.last }
