package eventlog

// ConflictKind distinguishes which operation violated the allocator
// protocol.
type ConflictKind uint8

const (
	// ConflictAlloc marks a malloc at an (address, heap id) pair that
	// already had a live block (double alloc).
	ConflictAlloc ConflictKind = iota
	// ConflictFree marks a free of an (address, heap id) pair with no
	// live block.
	ConflictFree
)

// String returns a human-readable name for the conflict kind.
func (k ConflictKind) String() string {
	switch k {
	case ConflictAlloc:
		return "alloc"
	case ConflictFree:
		return "free"
	default:
		return "unknown"
	}
}

// Conflict is an immutable record of one observed allocator-protocol
// violation. Conflicts form a parallel append-only log used only for
// diagnostics and highlighting; recording one never alters how past or
// future events are processed.
type Conflict struct {
	Tick uint32
	Addr uint64
	Kind ConflictKind
}
