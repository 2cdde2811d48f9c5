package vm

import (
	"sync/atomic"

	"github.com/nooga/mdr/pkg/errors"
)

// FunctionCode is one body of a function, valid for every call whose
// signature agrees with Signature on the slots selected by Mask.
type FunctionCode struct {
	Signature Signature
	Mask      uint64
	Body      Body // nil while the entry is only collecting calls

	hits    atomic.Uint64
	offered bool // already handed to the specializer
}

func NewFunctionCode(sig Signature, body Body) *FunctionCode {
	mask := sig.Mask()
	return &FunctionCode{Signature: Signature(uint64(sig) & mask), Mask: mask, Body: body}
}

func (c *FunctionCode) Matches(sig Signature) bool {
	return uint64(sig)&c.Mask == uint64(c.Signature)
}

// Hits is the number of calls that selected this entry.
func (c *FunctionCode) Hits() uint64 { return c.hits.Load() }

type cachedCode struct {
	known int
	code  *FunctionCode
}

// CodeCache holds the bodies of one function ordered by descending number
// of known argument types, so Get returns the most specific match.
type CodeCache struct {
	owner string
	items []cachedCode
}

// Get returns the first entry matching sig, or nil.
func (c *CodeCache) Get(sig Signature) *FunctionCode {
	for _, item := range c.items {
		if item.code.Matches(sig) {
			return item.code
		}
	}
	return nil
}

// GetCompiled is Get restricted to entries that have a body.
func (c *CodeCache) GetCompiled(sig Signature) *FunctionCode {
	for _, item := range c.items {
		if item.code.Body != nil && item.code.Matches(sig) {
			return item.code
		}
	}
	return nil
}

// Add inserts code after every entry with at least as many known argument
// types. When an entry with the same mask and value is still collecting
// calls, code's body is installed into it; any other collision is a
// DuplicateSignatureError.
func (c *CodeCache) Add(code *FunctionCode) error {
	for _, item := range c.items {
		if item.code.Mask == code.Mask && item.code.Signature == code.Signature {
			if item.code.Body == nil && code.Body != nil {
				item.code.Body = code.Body
				return nil
			}
			return errors.NewDuplicateSignature(c.owner, code.Mask, uint64(code.Signature))
		}
	}
	known := code.Signature.KnownArgTypesCount()
	i := 0
	for i < len(c.items) && c.items[i].known >= known {
		i++
	}
	c.items = append(c.items, cachedCode{})
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = cachedCode{known: known, code: code}
	return nil
}

// Remove drops code from the cache and reports whether it was present.
func (c *CodeCache) Remove(code *FunctionCode) bool {
	for i, item := range c.items {
		if item.code == code {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns the entries in lookup order.
func (c *CodeCache) Items() []*FunctionCode {
	out := make([]*FunctionCode, len(c.items))
	for i, item := range c.items {
		out[i] = item.code
	}
	return out
}

func (c *CodeCache) Len() int { return len(c.items) }
