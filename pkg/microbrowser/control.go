// pkg/microbrowser/control.go
package microbrowser

import "strings"

// defaultCheckedValue is reported by a checked checkbox or radio without a
// value attribute.
const defaultCheckedValue = "on"

// Control is a named form control. The set of implementations is closed:
// *TextControl, *HiddenControl, *CheckboxControl and *RadioControl.
type Control interface {
	Name() string
	// Value is the current value; "" means no value or unchecked.
	Value() string
	SetValue(value string) error
	Unwrap(target any) error

	element() Element
}

// CheckableControl is a control with a checked state.
type CheckableControl interface {
	Control
	// CheckedValue is the value reported while checked.
	CheckedValue() string
	Checked() bool
	SetChecked(checked bool) error
}

var (
	_ Control          = (*TextControl)(nil)
	_ Control          = (*HiddenControl)(nil)
	_ CheckableControl = (*CheckboxControl)(nil)
	_ CheckableControl = (*RadioControl)(nil)
)

type baseControl struct {
	el   Element
	name string
}

func (c *baseControl) Name() string            { return c.name }
func (c *baseControl) Unwrap(target any) error { return c.el.Unwrap(target) }
func (c *baseControl) element() Element        { return c.el }

// TextControl is a freely writable control: text-like inputs, password and
// textarea.
type TextControl struct {
	baseControl
}

func (c *TextControl) Value() string { return c.el.Value() }

func (c *TextControl) SetValue(value string) error {
	return c.el.SetValue(value)
}

// HiddenControl is read-only.
type HiddenControl struct {
	baseControl
}

func (c *HiddenControl) Value() string { return c.el.Value() }

func (c *HiddenControl) SetValue(string) error {
	return NewArgumentError("cannot set hidden control value: %s", c.name)
}

type checkable struct {
	baseControl
}

func (c *checkable) CheckedValue() string {
	if value, ok := c.el.Attribute("value"); ok {
		return value
	}
	return defaultCheckedValue
}

func (c *checkable) Checked() bool { return c.el.Selected() }

func (c *checkable) Value() string {
	if c.el.Selected() {
		return c.CheckedValue()
	}
	return ""
}

// CheckboxControl toggles between its checked-value and "".
type CheckboxControl struct {
	checkable
}

func (c *CheckboxControl) SetChecked(checked bool) error {
	return c.el.SetSelected(checked)
}

func (c *CheckboxControl) SetValue(value string) error {
	switch value {
	case c.CheckedValue():
		return c.SetChecked(true)
	case "":
		return c.SetChecked(false)
	default:
		return NewArgumentError("invalid checkbox value: %s", value)
	}
}

// RadioControl is checked only by selection; it is cleared when another
// radio of the same name in the same form is checked.
type RadioControl struct {
	checkable
	// scope is the owning form, searched for same-named radios.
	scope Element
}

func (c *RadioControl) SetChecked(checked bool) error {
	if !checked {
		return NewArgumentError("cannot uncheck radio control: %s", c.name)
	}

	siblings, err := c.scope.Select(controlSelector(c.name))
	if err != nil {
		return err
	}
	for _, el := range siblings {
		if inputType(el) != "radio" || !el.Selected() {
			continue
		}
		if err := el.SetSelected(false); err != nil {
			return err
		}
	}
	return c.el.SetSelected(true)
}

func (c *RadioControl) SetValue(value string) error {
	switch value {
	case "":
		return NewArgumentError("cannot uncheck radio control: %s", c.name)
	case c.CheckedValue():
		return c.SetChecked(true)
	default:
		return NewArgumentError("invalid radio value: %s", value)
	}
}

// nonControlTypes are inputs that never hold a submittable value of their own.
var nonControlTypes = map[string]bool{
	"submit": true,
	"reset":  true,
	"button": true,
	"image":  true,
	"file":   true,
}

func inputType(el Element) string {
	typ, _ := el.Attribute("type")
	return strings.ToLower(strings.TrimSpace(typ))
}

// newControl classifies el. The boolean is false for elements that are not
// value-bearing controls.
func newControl(el Element, scope Element) (Control, bool) {
	name, ok := el.Attribute("name")
	if !ok || name == "" {
		return nil, false
	}
	base := baseControl{el: el, name: name}

	switch el.TagName() {
	case "textarea":
		return &TextControl{base}, true
	case "input":
	default:
		return nil, false
	}

	typ := inputType(el)
	switch {
	case typ == "hidden":
		return &HiddenControl{base}, true
	case typ == "checkbox":
		return &CheckboxControl{checkable{base}}, true
	case typ == "radio":
		return &RadioControl{checkable: checkable{base}, scope: scope}, true
	case nonControlTypes[typ]:
		return nil, false
	default:
		return &TextControl{base}, true
	}
}

const allControlsSelector = "input[name], textarea[name]"

func controlSelector(name string) string {
	q := cssString(name)
	return "input[name=" + q + "], textarea[name=" + q + "]"
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
