// pkg/microbrowser/microdata.go
package microbrowser

import "net/url"

// MicrodataItem is an element carrying itemscope. Properties are read from
// the page on every access.
type MicrodataItem struct {
	doc *Document
	el  Element
}

// ID is the absolute itemid, or nil.
func (i *MicrodataItem) ID() *url.URL {
	return ParseLenient(i.el.AbsoluteAttribute("itemid"))
}

// Type is the itemtype attribute.
func (i *MicrodataItem) Type() string {
	typ, _ := i.el.Attribute("itemtype")
	return typ
}

// Property returns the first property named name.
func (i *MicrodataItem) Property(name string) (*MicrodataProperty, error) {
	props, err := i.Properties(name)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, NewNotFoundError("property", name)
	}
	return props[0], nil
}

// Properties returns every property named name in document order.
func (i *MicrodataItem) Properties(name string) ([]*MicrodataProperty, error) {
	els, err := i.el.Select("[itemprop~=" + cssString(name) + "]")
	if err != nil {
		return nil, err
	}
	props := make([]*MicrodataProperty, 0, len(els))
	for _, el := range els {
		props = append(props, &MicrodataProperty{name: name, el: el})
	}
	return props, nil
}

// Link returns the first link with relation rel inside the item.
func (i *MicrodataItem) Link(rel string) (*Link, error) {
	links, err := i.Links(rel)
	return firstLink(rel, links, err)
}

// Links returns the links with relation rel inside the item.
func (i *MicrodataItem) Links(rel string) ([]*Link, error) {
	return findLinks(i.doc, i.el, rel)
}

// Unwrap stores the engine-native item element in target.
func (i *MicrodataItem) Unwrap(target any) error {
	return i.el.Unwrap(target)
}

// MicrodataProperty is a named value of a microdata item.
type MicrodataProperty struct {
	name string
	el   Element
}

func (p *MicrodataProperty) Name() string { return p.name }

// Value is the property value as defined by the source element; never
// missing, "" when the element carries none.
func (p *MicrodataProperty) Value() string {
	return PropertyValue(p.el.TagName(), elementAttributes(p.el), p.el.Text)
}

// Int parses the value, returning 0 when it is empty or malformed. The other
// typed accessors behave the same way.
func (p *MicrodataProperty) Int() int { return parseInt(p.Value()) }

func (p *MicrodataProperty) Int64() int64 { return parseInt64(p.Value()) }

func (p *MicrodataProperty) Float32() float32 { return parseFloat32(p.Value()) }

func (p *MicrodataProperty) Float64() float64 { return parseFloat64(p.Value()) }

// Bool is true only for a case-insensitive "true".
func (p *MicrodataProperty) Bool() bool { return parseBool(p.Value()) }

// Unwrap stores the engine-native property element in target.
func (p *MicrodataProperty) Unwrap(target any) error {
	return p.el.Unwrap(target)
}
