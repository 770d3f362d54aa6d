package symbol

// Interner assigns dense uint32 IDs to symbols so downstream structures
// (adjacency lists, roaring bitmaps) can work with integers instead of
// structs. Lookup is by canonical value, not pointer identity, which keeps
// merging adapter outputs a pure data operation.
//
// Interner is not safe for concurrent use; the call graph builder is the
// single writer during the merge phase.
type Interner struct {
	byKey    map[string]uint32
	byCoarse map[string][]uint32
	symbols  []Symbol
}

// NewInterner returns an empty interner. Capacity is a hint for the expected
// node count.
func NewInterner(capacity int) *Interner {
	return &Interner{
		byKey:    make(map[string]uint32, capacity),
		byCoarse: make(map[string][]uint32, capacity),
		symbols:  make([]Symbol, 0, capacity),
	}
}

// Intern returns the ID for s, allocating a new one on first sight.
func (in *Interner) Intern(s Symbol) uint32 {
	key := s.Key()
	if id, ok := in.byKey[key]; ok {
		return id
	}
	id := uint32(len(in.symbols))
	in.byKey[key] = id
	in.byCoarse[s.CoarseKey()] = append(in.byCoarse[s.CoarseKey()], id)
	in.symbols = append(in.symbols, s)
	return id
}

// Lookup returns the ID for s if it was interned.
func (in *Interner) Lookup(s Symbol) (uint32, bool) {
	id, ok := in.byKey[s.Key()]
	return id, ok
}

// LookupCoarse returns all IDs sharing s's coarse key. This is the fallback
// used when exact signatures cannot be compared, e.g. advisory symbols.
func (in *Interner) LookupCoarse(s Symbol) []uint32 {
	return in.byCoarse[s.CoarseKey()]
}

// Symbol returns the symbol for an interned ID.
func (in *Interner) Symbol(id uint32) Symbol {
	return in.symbols[id]
}

// Len returns the number of interned symbols.
func (in *Interner) Len() int {
	return len(in.symbols)
}

// All returns the interned symbols in ID order. The returned slice is the
// interner's backing storage and must not be mutated.
func (in *Interner) All() []Symbol {
	return in.symbols
}
