package ir

// OpFamily constructs an operator at a given bit-width. bvlib exposes its
// operators as families rather than fixed-width instances so pkg/downscale
// can rebuild the same operator library at a smaller width, generalized
// here over any Ty rather than hard-coded to one theory.
type OpFamily func(width uint) Op

// FamilyLibrary is a named set of operator families together with their
// usage caps — a width-parameterized OpLibrary. Build calls every family at
// a concrete width to produce an ordinary OpLibrary.
type FamilyLibrary struct {
	names []string
	fams  map[string]OpFamily
	freqs map[string]uint
}

// NewFamilyLibrary constructs an empty width-parameterized library.
func NewFamilyLibrary() *FamilyLibrary {
	return &FamilyLibrary{fams: make(map[string]OpFamily), freqs: make(map[string]uint)}
}

// Add registers a family under name with usage cap freq (Unbounded for none).
func (l *FamilyLibrary) Add(name string, fam OpFamily, freq uint) *FamilyLibrary {
	if _, exists := l.fams[name]; !exists {
		l.names = append(l.names, name)
	}
	l.fams[name] = fam
	l.freqs[name] = freq
	return l
}

// Build instantiates every registered family at width, producing a concrete
// OpLibrary whose operators all operate on BitVec(width).
func (l *FamilyLibrary) Build(width uint) *OpLibrary {
	lib := NewOpLibrary()
	for _, name := range l.names {
		lib.Add(l.fams[name](width), l.freqs[name])
	}
	return lib
}
