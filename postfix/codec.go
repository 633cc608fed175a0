package postfix

import (
	"fmt"
	"sort"

	"opzterm/token"
)

// Codec converts a postfix program to and from its persisted form
type Codec interface {
	// Encode converts a program to bytes
	Encode(p *Program) ([]byte, error)

	// Decode converts bytes back to a program
	Decode(data []byte) (*Program, error)

	// Name returns the name of the codec
	Name() string
}

// Registry manages the available codecs
type Registry struct {
	codecs       map[string]Codec
	defaultCodec string
}

// NewRegistry creates a registry with the text, json and binary codecs.
// surface controls how markers are spelled by the text codec.
func NewRegistry(surface token.Surface) *Registry {
	r := &Registry{
		codecs:       make(map[string]Codec),
		defaultCodec: "text",
	}
	_ = r.Register(NewTextCodec(surface))
	_ = r.Register(NewJSONCodec())
	_ = r.Register(NewBinaryCodec())
	return r
}

// Register registers a codec
func (r *Registry) Register(c Codec) error {
	name := c.Name()
	if _, exists := r.codecs[name]; exists {
		return fmt.Errorf("codec '%s' is already registered", name)
	}
	r.codecs[name] = c
	return nil
}

// Get returns a codec by name; an empty name selects the default
func (r *Registry) Get(name string) (Codec, error) {
	if name == "" {
		name = r.defaultCodec
	}
	c, ok := r.codecs[name]
	if !ok {
		return nil, fmt.Errorf("codec '%s' not found (available: %v)", name, r.Names())
	}
	return c, nil
}

// Names returns the registered codec names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefault changes the codec used when no name is given
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.codecs[name]; !ok {
		return fmt.Errorf("codec '%s' not found", name)
	}
	r.defaultCodec = name
	return nil
}
