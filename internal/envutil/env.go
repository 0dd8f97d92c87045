// Package envutil provides a small seam around environment variable
// lookups so config loading can be tested without touching the real
// process environment
package envutil

import "os"

// Env represents a source of environment variables
type Env struct {
	kv map[string]string
}

// NewFromOs returns an Env backed by the current process environment
func NewFromOs() *Env {
	kv := map[string]string{}
	for _, pair := range os.Environ() {
		for i := 0; i < len(pair); i++ {
			if pair[i] == '=' {
				kv[pair[:i]] = pair[i+1:]
				break
			}
		}
	}
	return &Env{kv: kv}
}

// NewFromKVList returns an Env backed by a list of "KEY=VALUE" strings
func NewFromKVList(pairs []string) *Env {
	kv := map[string]string{}
	for _, pair := range pairs {
		for i := 0; i < len(pair); i++ {
			if pair[i] == '=' {
				kv[pair[:i]] = pair[i+1:]
				break
			}
		}
	}
	return &Env{kv: kv}
}

// Get returns the value of the given environment variable, or an
// empty string if it isn't set
func (e *Env) Get(key string) string {
	return e.kv[key]
}
