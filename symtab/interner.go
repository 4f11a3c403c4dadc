// Package symtab implements the symbol interner: a bytes<->id table that
// gives every identifier (variable name, function name, property name)
// referenced by a chunk a stable small integer within the current
// request, so the opcode stream and runtime maps can key off an int
// instead of repeatedly hashing/comparing strings.
package symtab

import "sync"

// Symbol is an interned identifier's id within an Interner.
type Symbol uint32

// Interner assigns each distinct string a stable Symbol. It is safe for
// concurrent use, though the engine model is single-threaded per request
// (§7): the lock only protects the shared, request-lifetime table from
// accidental concurrent registration (e.g. extension MINIT hooks running
// before the first request).
type Interner struct {
	mu     sync.RWMutex
	ids    map[string]Symbol
	names  []string
}

// New returns an empty interner. Symbol 0 is reserved and never issued
// by Intern, so a zero-value Symbol reliably means "unset".
func New() *Interner {
	return &Interner{
		ids:   make(map[string]Symbol),
		names: []string{""},
	}
}

// Intern returns the Symbol for s, assigning a new one on first sight.
func (in *Interner) Intern(s string) Symbol {
	in.mu.RLock()
	if id, ok := in.ids[s]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := Symbol(len(in.names))
	in.names = append(in.names, s)
	in.ids[s] = id
	return id
}

// Lookup returns the Symbol already assigned to s, if any, without
// interning it.
func (in *Interner) Lookup(s string) (Symbol, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.ids[s]
	return id, ok
}

// Name returns the string a Symbol was interned from. It panics on an
// out-of-range id, which indicates a Symbol from a different Interner
// leaked in — interners are never meant to be mixed across requests.
func (in *Interner) Name(sym Symbol) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(sym) >= len(in.names) {
		panic("symtab: symbol out of range")
	}
	return in.names[sym]
}

// Len reports how many distinct symbols have been interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.names) - 1
}
