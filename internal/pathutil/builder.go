package pathutil

import "strconv"

// Pointer is a JSON pointer grown and shrunk one token at a time while
// walking a document. The zero value is the empty pointer (the whole
// document).
type Pointer struct {
	buf  []byte
	cuts []int // len(buf) before each Push
}

// Push appends token, escaping "~" and "/".
func (p *Pointer) Push(token string) {
	p.cuts = append(p.cuts, len(p.buf))
	p.buf = append(p.buf, '/')
	p.buf = append(p.buf, EscapePointerToken(token)...)
}

// PushIndex appends a sequence index.
func (p *Pointer) PushIndex(i int) {
	p.cuts = append(p.cuts, len(p.buf))
	p.buf = append(p.buf, '/')
	p.buf = strconv.AppendInt(p.buf, int64(i), 10)
}

// Pop drops the last token. Popping the empty pointer does nothing.
func (p *Pointer) Pop() {
	n := len(p.cuts)
	if n == 0 {
		return
	}
	p.buf = p.buf[:p.cuts[n-1]]
	p.cuts = p.cuts[:n-1]
}

func (p *Pointer) Reset() {
	p.buf = p.buf[:0]
	p.cuts = p.cuts[:0]
}

// Depth is the number of tokens.
func (p *Pointer) Depth() int { return len(p.cuts) }

// String returns the escaped pointer, e.g. "/paths/~1farcaster~1cast/get".
func (p *Pointer) String() string { return string(p.buf) }
