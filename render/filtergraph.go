package render

import (
	"strconv"
	"strings"
)

// Param is one filter option. An empty Key makes it positional.
type Param struct {
	Key   string
	Value string
}

// Filter is one filtergraph node, e.g. scale=1080:1920
type Filter struct {
	Name   string
	Params []Param
}

// NewFilter starts a filter with the given name
func NewFilter(name string) Filter {
	return Filter{Name: name}
}

// Set appends a keyed option. Numbers are formatted without exponent or trailing zeros.
func (f Filter) Set(key string, value any) Filter {
	f.Params = append(append([]Param(nil), f.Params...), Param{Key: key, Value: formatValue(value)})
	return f
}

// Arg appends a positional option
func (f Filter) Arg(value any) Filter {
	return f.Set("", value)
}

func (f Filter) String() string {
	if len(f.Params) == 0 {
		return f.Name
	}
	parts := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		v := quote(p.Value)
		if p.Key == "" {
			parts = append(parts, v)
		} else {
			parts = append(parts, p.Key+"="+v)
		}
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is a linear run of filters between labelled pads
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

func (c Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	for _, out := range c.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// Graph is a complete -filter_complex value
type Graph struct {
	Chains []Chain
}

// Add appends a chain and returns the graph for chaining
func (g *Graph) Add(c Chain) *Graph {
	g.Chains = append(g.Chains, c)
	return g
}

func (g Graph) String() string {
	parts := make([]string, 0, len(g.Chains))
	for _, c := range g.Chains {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ";")
}

// Expr is a filter expression. It is always quoted when serialized.
type Expr string

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case Expr:
		return "'" + string(x) + "'"
	case int:
		return strconv.Itoa(x)
	case float64:
		return num(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

// num formats a float with at most six decimals and no trailing zeros
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// quote protects values that contain filtergraph separators
func quote(v string) string {
	if strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") && len(v) > 1 {
		return v
	}
	if strings.ContainsAny(v, ",;:[]'") {
		return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
	}
	return v
}
