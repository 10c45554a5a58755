// pkg/microbrowser/group.go
package microbrowser

// ControlGroup is every control of one name within a form, in document order.
// A group always has at least one member.
type ControlGroup struct {
	controls []Control
}

func newControlGroup(controls []Control) *ControlGroup {
	return &ControlGroup{controls: controls}
}

// Name is the name shared by the group's controls.
func (g *ControlGroup) Name() string {
	return g.controls[0].Name()
}

// Controls returns the members in document order.
func (g *ControlGroup) Controls() []Control {
	out := make([]Control, len(g.controls))
	copy(out, g.controls)
	return out
}

// Control returns the first member whose checked-value, or plain value for
// controls that cannot be checked, equals value.
func (g *ControlGroup) Control(value string) (Control, error) {
	for _, c := range g.controls {
		if controlKey(c) == value {
			return c, nil
		}
	}
	return nil, NewNotFoundError("control", g.Name()+"="+value)
}

func controlKey(c Control) string {
	if cc, ok := c.(CheckableControl); ok {
		return cc.CheckedValue()
	}
	return c.Value()
}

// Values returns the non-empty current values in document order, which is
// what a submission of the group would carry.
func (g *ControlGroup) Values() []string {
	var values []string
	for _, c := range g.controls {
		if v := c.Value(); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// SetValues checks every checkable member whose checked-value is listed and
// unchecks the checkboxes that are not. Each listed value is consumed once;
// values left over fail the call and nothing is changed. Members that cannot
// be checked are not touched.
func (g *ControlGroup) SetValues(values ...string) error {
	if leftover := g.unmatched(values); len(leftover) > 0 {
		return NewArgumentError("invalid control values: %v", leftover)
	}

	remaining := make([]string, len(values))
	copy(remaining, values)

	for _, c := range g.controls {
		cc, ok := c.(CheckableControl)
		if !ok {
			continue
		}

		if i := indexOf(remaining, cc.CheckedValue()); i >= 0 {
			if err := cc.SetChecked(true); err != nil {
				return err
			}
			remaining = append(remaining[:i], remaining[i+1:]...)
			continue
		}

		if _, radio := cc.(*RadioControl); radio {
			continue
		}
		if err := cc.SetChecked(false); err != nil {
			return err
		}
	}

	return nil
}

// unmatched returns the values no checkable member would consume.
func (g *ControlGroup) unmatched(values []string) []string {
	remaining := make([]string, len(values))
	copy(remaining, values)
	for _, c := range g.controls {
		cc, ok := c.(CheckableControl)
		if !ok {
			continue
		}
		if i := indexOf(remaining, cc.CheckedValue()); i >= 0 {
			remaining = append(remaining[:i], remaining[i+1:]...)
		}
	}
	return remaining
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
