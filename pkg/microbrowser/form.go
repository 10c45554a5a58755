// pkg/microbrowser/form.go
package microbrowser

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// submitSelector matches the elements that can submit a form.
const submitSelector = `input[type="submit"], input[type="image"], button[type="submit"], button:not([type])`

// Form is a named HTML form of a document. Besides the live control values it
// holds pending parameters that replace control values at submission.
type Form struct {
	doc    *Document
	el     Element
	name   string
	params []Param
}

func newForm(doc *Document, el Element, name string) *Form {
	return &Form{doc: doc, el: el, name: name}
}

func (f *Form) Name() string { return f.name }

// Action is the absolute submission URL, the document URL when the form has
// no action.
func (f *Form) Action() (*url.URL, error) {
	raw, ok := f.el.Attribute("action")
	if !ok || strings.TrimSpace(raw) == "" {
		return f.doc.URL(), nil
	}
	u := ParseLenient(f.el.AbsoluteAttribute("action"))
	if u == nil {
		return nil, NewArgumentError("invalid form action: %s", raw)
	}
	return u, nil
}

// Method is GET or POST; other or missing methods submit as GET.
func (f *Form) Method() string {
	method, _ := f.el.Attribute("method")
	if strings.ToUpper(strings.TrimSpace(method)) == http.MethodPost {
		return http.MethodPost
	}
	return http.MethodGet
}

// ControlGroup returns the controls of this form named name.
func (f *Form) ControlGroup(name string) (*ControlGroup, error) {
	els, err := f.el.Select(controlSelector(name))
	if err != nil {
		return nil, err
	}

	var controls []Control
	for _, el := range els {
		if c, ok := newControl(el, f.el); ok {
			controls = append(controls, c)
		}
	}
	if len(controls) == 0 {
		return nil, NewNotFoundError("control", name)
	}
	return newControlGroup(controls), nil
}

// Control returns the first control named name.
func (f *Form) Control(name string) (Control, error) {
	group, err := f.ControlGroup(name)
	if err != nil {
		return nil, err
	}
	return group.controls[0], nil
}

// ControlValue returns the value of the first control named name.
func (f *Form) ControlValue(name string) (string, error) {
	c, err := f.Control(name)
	if err != nil {
		return "", err
	}
	return c.Value(), nil
}

// SetControlValue sets the value of the first control named name.
func (f *Form) SetControlValue(name, value string) error {
	c, err := f.Control(name)
	if err != nil {
		return err
	}
	return c.SetValue(value)
}

// ControlValues returns the non-empty values of the group named name.
func (f *Form) ControlValues(name string) ([]string, error) {
	group, err := f.ControlGroup(name)
	if err != nil {
		return nil, err
	}
	return group.Values(), nil
}

// SetControlValues applies values across the group named name.
func (f *Form) SetControlValues(name string, values ...string) error {
	group, err := f.ControlGroup(name)
	if err != nil {
		return err
	}
	return group.SetValues(values...)
}

// SetParameter records a value submitted for name in place of the form's own
// controls of that name. The form must have a control named name.
func (f *Form) SetParameter(name, value string) error {
	if _, err := f.ControlGroup(name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewArgumentError("unknown form parameter: %s", name)
		}
		return err
	}

	for i := range f.params {
		if f.params[i].Name == name {
			f.params[i].Value = value
			return nil
		}
	}
	f.params = append(f.params, Param{Name: name, Value: value})
	return nil
}

// Parameter returns the pending value recorded for name.
func (f *Form) Parameter(name string) (string, bool) {
	for _, p := range f.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Submit encodes the form and loads the response as a new document. The
// receiver and its document are unchanged whether or not the load succeeds.
func (f *Form) Submit(ctx context.Context) (*Document, error) {
	buttons, err := f.el.Select(submitSelector)
	if err != nil {
		return nil, err
	}
	if len(buttons) == 0 {
		return nil, NewStateError("missing form submit button: %s", f.name)
	}

	action, err := f.Action()
	if err != nil {
		return nil, err
	}

	params, err := f.submission()
	if err != nil {
		return nil, err
	}

	req := &Request{Method: f.Method(), URL: action}
	if req.Method == http.MethodGet {
		req.URL = withQuery(action, encodeParams(params))
	} else {
		req.Params = params
	}

	f.doc.browser.logger.Debug("Submitting form",
		zap.String("form", f.name),
		zap.String("method", req.Method),
		zap.String("action", action.String()),
	)
	return f.doc.load(ctx, req)
}

// submission collects the submitted fields in document order. A pending
// parameter takes the place of its name's first control and drops the rest.
func (f *Form) submission() ([]Param, error) {
	els, err := f.el.Select(allControlsSelector)
	if err != nil {
		return nil, err
	}

	var params []Param
	overridden := make(map[string]bool)
	for _, el := range els {
		c, ok := newControl(el, f.el)
		if !ok {
			continue
		}

		name := c.Name()
		if value, ok := f.Parameter(name); ok {
			if !overridden[name] {
				overridden[name] = true
				params = append(params, Param{Name: name, Value: value})
			}
			continue
		}

		if value := c.Value(); value != "" {
			params = append(params, Param{Name: name, Value: value})
		}
	}
	return params, nil
}

// withQuery appends query to the URL's existing query.
func withQuery(u *url.URL, query string) *url.URL {
	out := *u
	if query == "" {
		return &out
	}
	if out.RawQuery == "" {
		out.RawQuery = query
	} else {
		out.RawQuery += "&" + query
	}
	return &out
}
