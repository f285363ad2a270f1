package opendap

import (
	"strconv"
	"strings"
)

// ParseDAS parses a textual DAS document into a two-level map:
// container name (a variable name, or "NC_GLOBAL") -> attribute name ->
// value. Nested per-axis sub-containers (e.g. a grid's map variable
// attributes) are flattened into their parent container, which is
// sufficient for the global-attribute and per-variable-attribute
// lookups spec.md §4.6/§4.7 perform.
func ParseDAS(text string) (map[string]map[string]any, error) {
	toks := ddsLex(text)
	p := &ddsParser{toks: toks}
	if err := p.expect("Attributes"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]any)
	for p.peek() != "}" && p.peek() != "" {
		name := p.next()
		if err := p.expect("{"); err != nil {
			return nil, err
		}
		attrs := out[name]
		if attrs == nil {
			attrs = make(map[string]any)
		}
		parseDASBody(p, attrs)
		out[name] = attrs
	}
	return out, nil
}

// parseDASBody consumes the body of one { ... } container, flattening
// any nested containers into attrs in place.
func parseDASBody(p *ddsParser, attrs map[string]any) {
	for p.peek() != "}" && p.peek() != "" {
		typeOrName := p.next()
		if p.peek() == "{" {
			p.next()
			parseDASBody(p, attrs)
			continue
		}
		attrName := p.next()
		var vals []string
		for p.peek() != ";" && p.peek() != "" {
			vals = append(vals, p.next())
		}
		p.expect(";")
		attrs[attrName] = coerceDASValue(typeOrName, strings.Join(vals, " "))
	}
	p.expect("}")
}

// coerceDASValue converts a raw DAS scalar token sequence to a Go value
// using its declared DAP type, trimming the quotes pydap's writer puts
// around String/Url values.
func coerceDASValue(typeName, raw string) any {
	raw = strings.Trim(raw, "\"")
	switch typeName {
	case "String", "Url":
		return raw
	case "Byte", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
		return raw
	case "Float32", "Float64":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	}
}

// ApplyDAS merges parsed DAS attributes into ds: NC_GLOBAL into the
// dataset's own Attributes map, everything else into the matching
// variable (including a Grid's nested Array node, which DAS addresses
// by the Grid's own name).
func ApplyDAS(ds *Dataset, das map[string]map[string]any) {
	if ds.Attributes == nil {
		ds.Attributes = make(map[string]any)
	}
	for container, attrs := range das {
		if container == "NC_GLOBAL" {
			for k, v := range attrs {
				ds.Attributes[k] = v
			}
			continue
		}
		v, ok := ds.Variables[container]
		if !ok {
			continue
		}
		if v.Attributes == nil {
			v.Attributes = make(map[string]any)
		}
		for k, val := range attrs {
			v.Attributes[k] = val
		}
		if v.Kind == KindGrid && v.Array != nil {
			if v.Array.Attributes == nil {
				v.Array.Attributes = make(map[string]any)
			}
			for k, val := range attrs {
				v.Array.Attributes[k] = val
			}
		}
	}
}
