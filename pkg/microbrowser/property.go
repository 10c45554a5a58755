// pkg/microbrowser/property.go
package microbrowser

import (
	"strconv"
	"strings"
)

// AttributeAccessor reads an attribute of a property's source element,
// optionally resolved to an absolute URL.
type AttributeAccessor interface {
	Attribute(name string, absolute bool) string
}

// AttributeFunc adapts a function to AttributeAccessor.
type AttributeFunc func(name string, absolute bool) string

// Attribute calls f.
func (f AttributeFunc) Attribute(name string, absolute bool) string { return f(name, absolute) }

// valueAttributes maps an element name to the attribute holding its
// microdata property value.
var valueAttributes = map[string]string{
	"meta":   "content",
	"audio":  "src",
	"embed":  "src",
	"iframe": "src",
	"img":    "src",
	"source": "src",
	"track":  "src",
	"video":  "src",
	"a":      "href",
	"area":   "href",
	"link":   "href",
	"object": "data",
	"data":   "value",
	"meter":  "value",
	"time":   "datetime",
}

// urlAttributes hold URLs and are resolved against the document URL.
var urlAttributes = map[string]bool{
	"src":  true,
	"href": true,
	"data": true,
}

// PropertyValue computes a microdata property value from its source element.
// The result is never missing: absent attributes and text yield "".
func PropertyValue(tagName string, attrs AttributeAccessor, text func() string) string {
	tagName = strings.ToLower(tagName)
	attr, ok := valueAttributes[tagName]
	if !ok {
		return text()
	}

	value := attrs.Attribute(attr, urlAttributes[attr])
	if tagName == "time" && value == "" {
		return text()
	}
	return value
}

func elementAttributes(el Element) AttributeAccessor {
	return AttributeFunc(func(name string, absolute bool) string {
		if absolute {
			return el.AbsoluteAttribute(name)
		}
		value, _ := el.Attribute(name)
		return value
	})
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloat32(s string) float32 {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

func parseFloat64(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
