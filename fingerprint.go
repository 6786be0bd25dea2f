package symcore

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"sync"
)

// Hash returns a structural hash: equal expressions hash equally.
// Hashes of applications are cached on the node.
func Hash(e Expr) uint64 {
	if a, ok := e.(*Apply); ok {
		if h := a.hash.Load(); h != 0 {
			return h
		}
		h := fnv.New64a()
		writeCanonical(h, a)
		sum := h.Sum64()
		if sum == 0 {
			sum = 1
		}
		a.hash.Store(sum)
		return sum
	}
	h := fnv.New64a()
	writeCanonical(h, e)
	return h.Sum64()
}

// writeCanonical streams a tagged, length-prefixed encoding of e.
func writeCanonical(w hash.Hash, e Expr) {
	var tag [1]byte
	tag[0] = byte(e.Kind())
	w.Write(tag[:])
	switch x := e.(type) {
	case Integer:
		b := x.big()
		tag[0] = byte(b.Sign() + 1)
		w.Write(tag[:])
		raw := b.Bytes()
		binary.Write(w, binary.LittleEndian, uint64(len(raw)))
		w.Write(raw)
	case Real:
		f := float64(x)
		switch {
		case f == 0:
			f = 0
		case math.IsNaN(f):
			f = math.NaN()
		}
		binary.Write(w, binary.LittleEndian, math.Float64bits(f))
	case Str:
		binary.Write(w, binary.LittleEndian, uint64(len(x)))
		w.Write([]byte(x))
	case *Symbol:
		binary.Write(w, binary.LittleEndian, uint64(len(x.name)))
		w.Write([]byte(x.name))
	case *Apply:
		writeCanonical(w, x.head)
		binary.Write(w, binary.LittleEndian, uint64(len(x.args)))
		for _, arg := range x.args {
			writeCanonical(w, arg)
		}
	}
}

// Fingerprinter produces stable hex digests of expressions, caching the
// digest per application node.
type Fingerprinter struct {
	mu    sync.RWMutex
	cache map[*Apply]string
	limit int
}

// NewFingerprinter creates a fingerprinter holding at most limit cached
// digests; limit <= 0 selects a default.
func NewFingerprinter(limit int) *Fingerprinter {
	if limit <= 0 {
		limit = 4096
	}
	return &Fingerprinter{
		cache: make(map[*Apply]string, 256),
		limit: limit,
	}
}

// Fingerprint returns the sha256 digest of the canonical encoding of e.
func (fp *Fingerprinter) Fingerprint(e Expr) string {
	if e == nil {
		return "void"
	}
	a, isApply := e.(*Apply)
	if isApply {
		fp.mu.RLock()
		if sum, ok := fp.cache[a]; ok {
			fp.mu.RUnlock()
			return sum
		}
		fp.mu.RUnlock()
	}

	h := sha256.New()
	writeCanonical(h, e)
	sum := fmt.Sprintf("%x", h.Sum(nil))

	if isApply {
		fp.mu.Lock()
		if len(fp.cache) >= fp.limit {
			fp.cache = make(map[*Apply]string, 256)
		}
		fp.cache[a] = sum
		fp.mu.Unlock()
	}
	return sum
}

// Reset clears the cache.
func (fp *Fingerprinter) Reset() {
	fp.mu.Lock()
	fp.cache = make(map[*Apply]string, 256)
	fp.mu.Unlock()
}
