// pkg/microbrowser/chrome/element.go
package chrome

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

// Scripts run with the element bound to this.
const (
	snapshotScript = `function() {
	const attrs = {};
	for (const a of (this.attributes || [])) { attrs[a.name] = a.value; }
	return {
		tag: this.tagName ? this.tagName.toLowerCase() : '',
		attrs: attrs,
		text: (this.textContent || '').replace(/\s+/g, ' ').trim()
	};
}`
	valueScript    = `function() { return ('value' in this) ? String(this.value) : ''; }`
	setValueScript = `function(v) {
	this.value = v;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`
	checkedScript    = `function() { return !!this.checked; }`
	setCheckedScript = `function(v) {
	this.checked = v;
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`
)

type snapshot struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs"`
	Text  string            `json:"text"`
}

// element is a node of the tab's DOM. Tag, attributes and text are captured
// when the element is found; value and checked state are read live.
type element struct {
	page *page
	node *cdp.Node
	snap snapshot
}

var _ microbrowser.Element = (*element)(nil)

func newElement(p *page, node *cdp.Node) *element {
	e := &element{page: p, node: node}
	if err := e.call(snapshotScript, &e.snap); err != nil {
		p.engine.logger.Debug("Failed to capture element", zap.Error(err))
		e.snap = snapshotFromNode(node)
	}
	return e
}

// snapshotFromNode falls back to what the DOM domain already reported.
func snapshotFromNode(node *cdp.Node) snapshot {
	s := snapshot{Tag: strings.ToLower(node.LocalName), Attrs: make(map[string]string)}
	for i := 0; i+1 < len(node.Attributes); i += 2 {
		s.Attrs[node.Attributes[i]] = node.Attributes[i+1]
	}
	return s
}

// call runs function with this bound to the element's remote object.
func (e *element) call(function string, res any, args ...any) error {
	engine := e.page.engine
	return engine.run(context.Background(), engine.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve node: %w", err)
			}
			defer func() {
				if err := runtime.ReleaseObject(obj.ObjectID).Do(ctx); err != nil {
					engine.logger.Debug("Failed to release remote object", zap.Error(err))
				}
			}()
			return chromedp.CallFunctionOn(function, res, onObject(obj.ObjectID), args...).Do(ctx)
		}),
	)
}

// onObject targets a CallFunctionOn at the remote object id.
func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

func (e *element) TagName() string { return e.snap.Tag }

func (e *element) Attribute(name string) (string, bool) {
	v, ok := e.snap.Attrs[name]
	return v, ok
}

func (e *element) AbsoluteAttribute(name string) string {
	raw, ok := e.snap.Attrs[name]
	if !ok {
		return ""
	}
	return microbrowser.ResolveReference(e.page.base, raw)
}

func (e *element) Text() string { return e.snap.Text }

func (e *element) Select(selector string) ([]microbrowser.Element, error) {
	if err := e.page.checkCurrent(); err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	err := e.page.engine.run(context.Background(), e.page.engine.actionTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, microbrowser.NewTransportError("select", e.page.url.String(), err)
	}

	els := make([]microbrowser.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, newElement(e.page, n))
	}
	return els, nil
}

func (e *element) Value() string {
	var value string
	if err := e.call(valueScript, &value); err != nil {
		e.page.engine.logger.Debug("Failed to read element value", zap.String("tag", e.snap.Tag), zap.Error(err))
		return ""
	}
	return value
}

func (e *element) SetValue(value string) error {
	var ok bool
	if err := e.call(setValueScript, &ok, value); err != nil {
		return microbrowser.NewTransportError("set value", e.page.url.String(), err)
	}
	return nil
}

func (e *element) Selected() bool {
	var checked bool
	if err := e.call(checkedScript, &checked); err != nil {
		e.page.engine.logger.Debug("Failed to read checked state", zap.String("tag", e.snap.Tag), zap.Error(err))
		return false
	}
	return checked
}

func (e *element) SetSelected(selected bool) error {
	var ok bool
	if err := e.call(setCheckedScript, &ok, selected); err != nil {
		return microbrowser.NewTransportError("set checked", e.page.url.String(), err)
	}
	return nil
}

// Unwrap accepts **cdp.Node.
func (e *element) Unwrap(target any) error {
	t, ok := target.(**cdp.Node)
	if !ok {
		return microbrowser.NewArgumentError("unsupported unwrap target: %T", target)
	}
	*t = e.node
	return nil
}
