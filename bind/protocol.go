package bind

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Protocol is a named set of method descriptors: the single description of an interface that
// both servers and clients are built from.
type Protocol struct {
	name    string
	methods []Descriptor
}

// NewProtocol panics on duplicate method names.
func NewProtocol(name string, methods ...Descriptor) *Protocol {
	seen := make(map[string]bool, len(methods))
	for _, m := range methods {
		if seen[m.Name()] {
			panic(fmt.Sprintf("bind: protocol %s: duplicate method %q", name, m.Name()))
		}
		seen[m.Name()] = true
	}
	return &Protocol{name: name, methods: methods}
}

func (p *Protocol) Name() string {
	return p.name
}

func (p *Protocol) Methods() []Descriptor {
	return append([]Descriptor(nil), p.methods...)
}

// Implement builds a dispatcher serving every method of p from impl's exported methods.
//
// A Go method matches a protocol method when the names agree ignoring case and underscores
// (MaybeFail serves maybe_fail). Its signature must be func(context.Context, P) R for a plain
// method and func(context.Context, P) (R, error) for a fallible one. Every missing or mismatched
// method is reported; impl's other methods are ignored.
func (p *Protocol) Implement(impl any) (*Dispatcher, error) {
	v := reflect.ValueOf(impl)
	if !v.IsValid() {
		return nil, fmt.Errorf("bind: protocol %s: nil implementation", p.name)
	}

	index := make(map[string]reflect.Value, v.NumMethod())
	for i := 0; i < v.NumMethod(); i++ {
		index[normalize(v.Type().Method(i).Name)] = v.Method(i)
	}

	var errs []error
	handlers := make([]Handler, 0, len(p.methods))
	for _, m := range p.methods {
		fn, ok := index[normalize(m.Name())]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %T has no matching method", m.Name(), impl))
			continue
		}
		h, err := m.bind(fn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handlers = append(handlers, h)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("bind: protocol %s: %w", p.name, errors.Join(errs...))
	}
	return NewDispatcher(handlers...)
}

// MustImplement is Implement for package-level setup; it panics on error.
func (p *Protocol) MustImplement(impl any) *Dispatcher {
	d, err := p.Implement(impl)
	if err != nil {
		panic(err)
	}
	return d
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
