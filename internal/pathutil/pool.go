package pathutil

import "sync"

// Pointers built while walking fragments rarely exceed a dozen tokens
// (paths/<template>/<method>/responses/<code>/content/<media>/schema/...).
const (
	pointerCap    = 12
	maxPointerCap = 64
)

var pointers = sync.Pool{
	New: func() any {
		return &Pointer{buf: make([]byte, 0, 8*pointerCap), cuts: make([]int, 0, pointerCap)}
	},
}

// Get returns an empty Pointer from the shared pool. Hand it back with Put
// once every string needed from it has been materialized.
func Get() *Pointer {
	p := pointers.Get().(*Pointer)
	p.Reset()
	return p
}

// Put recycles p. Pointers that grew past maxPointerCap tokens are dropped.
func Put(p *Pointer) {
	if p != nil && cap(p.cuts) <= maxPointerCap {
		pointers.Put(p)
	}
}
