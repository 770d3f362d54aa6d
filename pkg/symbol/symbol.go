// Package symbol defines the canonical identity of callable units and the
// interning table that assigns them stable numeric IDs for graph storage.
package symbol

import (
	"strconv"
	"strings"
)

// ArityUnknown marks a symbol whose signature could not be determined.
// Symbols with unknown arity are matched by their coarse key only and all
// call edges into them are treated as conservative.
const ArityUnknown = -1

// Symbol is the canonical identity of a function or method. Two call sites
// that invoke the same source-level function must normalize to an equal
// Symbol; it is the join key between graph nodes, entrypoints, and advisory
// records.
type Symbol struct {
	Language string `json:"language"`
	Module   string `json:"module"`
	Receiver string `json:"receiver,omitempty"`
	Name     string `json:"name"`
	Arity    int    `json:"arity"`
}

// New returns a fully-specified symbol.
func New(language, module, receiver, name string, arity int) Symbol {
	return Symbol{
		Language: language,
		Module:   module,
		Receiver: receiver,
		Name:     name,
		Arity:    arity,
	}
}

// Coarse returns a symbol keyed on module and name only, used when signature
// extraction fails or when advisory data carries no signature information.
func Coarse(language, module, name string) Symbol {
	return Symbol{
		Language: language,
		Module:   module,
		Name:     name,
		Arity:    ArityUnknown,
	}
}

// CoarseSignature reports whether the symbol's signature is unknown.
func (s Symbol) CoarseSignature() bool {
	return s.Arity < 0
}

// Key returns the canonical string form: lang:module.Receiver#name/arity.
// The arity component is "?" for coarse symbols so that a coarse symbol never
// collides with a fully-resolved one.
func (s Symbol) Key() string {
	var b strings.Builder
	b.Grow(len(s.Language) + len(s.Module) + len(s.Receiver) + len(s.Name) + 8)
	b.WriteString(s.Language)
	b.WriteByte(':')
	b.WriteString(s.Module)
	b.WriteByte('.')
	if s.Receiver != "" {
		b.WriteString(s.Receiver)
		b.WriteByte('#')
	}
	b.WriteString(s.Name)
	b.WriteByte('/')
	if s.Arity < 0 {
		b.WriteByte('?')
	} else {
		b.WriteString(strconv.Itoa(s.Arity))
	}
	return b.String()
}

// CoarseKey returns the fallback join key: lang:module.name. Receiver and
// arity are deliberately dropped so that signature-less advisory symbols can
// still find their node.
func (s Symbol) CoarseKey() string {
	return s.Language + ":" + s.Module + "." + s.Name
}

// String implements fmt.Stringer for witness-path rendering. It reads as a
// call-chain element: module.Receiver.name.
func (s Symbol) String() string {
	if s.Receiver != "" {
		return s.Module + "." + s.Receiver + "." + s.Name
	}
	if s.Module == "" {
		return s.Name
	}
	return s.Module + "." + s.Name
}

// ParseAdvisorySymbol normalizes a dotted advisory symbol string
// ("module/path.Type.func" or "module/path.func") into a coarse Symbol.
// Advisory pipelines do not share the adapters' signature extraction, so the
// result always has unknown arity and matches via the coarse key.
func ParseAdvisorySymbol(language, raw string) (Symbol, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Symbol{}, false
	}

	// Rust-style paths: crate::module::func.
	if idx := strings.LastIndex(raw, "::"); idx >= 0 {
		return Coarse(language, raw[:idx], raw[idx+2:]), true
	}

	// The module path may itself contain dots (domains, versioned paths), so
	// split on the last path segment: everything after the final '/' holds
	// the pkg.Type.func or pkg.func part.
	slash := strings.LastIndexByte(raw, '/')
	head, tail := "", raw
	if slash >= 0 {
		head, tail = raw[:slash+1], raw[slash+1:]
	}

	parts := strings.Split(tail, ".")
	switch len(parts) {
	case 1:
		// Bare function name with no module qualifier.
		return Coarse(language, strings.TrimSuffix(head, "/"), parts[0]), true
	case 2:
		return Coarse(language, head+parts[0], parts[1]), true
	default:
		// pkg.Type.func: fold the receiver into the coarse key by keeping
		// only module and function name, mirroring how adapters report
		// methods under their coarse key.
		mod := head + parts[0]
		name := parts[len(parts)-1]
		s := Coarse(language, mod, name)
		s.Receiver = strings.Join(parts[1:len(parts)-1], ".")
		return s, true
	}
}
