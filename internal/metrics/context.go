// Package metrics computes the configurable metric battery over a practice session.
package metrics

import "fmt"

// Context memoizes intermediate values for exactly one Engine.Compute pass.
// It must not outlive the pass that created it.
type Context struct {
	values map[string]any
}

// NewContext returns an empty memo cache.
func NewContext() *Context {
	return &Context{values: map[string]any{}}
}

// Set stores v under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.values[key] = v
}

// Lookup returns the value stored under key.
// It panics if the stored value is not a T.
func Lookup[T any](c *Context, key string) (T, bool) {
	var zero T
	raw, ok := c.values[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		panic(fmt.Sprintf("metrics: context key %q holds %T, not %T", key, raw, zero))
	}
	return v, true
}

// Memo returns the value under key, computing and storing it on first use.
func Memo[T any](c *Context, key string, compute func() T) T {
	if v, ok := Lookup[T](c, key); ok {
		return v
	}
	v := compute()
	c.Set(key, v)
	return v
}
