// Package watcher defines the slurp contract: a watcher fetches the
// current configuration of every item of one technology across the
// watched accounts and regions.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ChangeItem is one fetched configuration item.
type ChangeItem struct {
	// Index is the technology name, e.g. "securitygroup".
	Index   string
	Account string
	Region  string
	Name    string
	ARN     string
	// Config is the typed schema value persisted as the revision body.
	Config interface{}
}

// ExceptionKey scopes a slurp failure to one technology, account and
// region.
type ExceptionKey struct {
	Technology string
	Account    string
	Region     string
}

// ExceptionMap records slurp failures. Items missing under a failed
// scope must not be treated as deletions.
type ExceptionMap map[ExceptionKey]error

// Add records a failure for a scope.
func (m ExceptionMap) Add(technology, account, region string, err error) {
	m[ExceptionKey{Technology: technology, Account: account, Region: region}] = err
}

// Covers reports whether a failure was recorded for the scope of an
// item, either for its exact region or account wide.
func (m ExceptionMap) Covers(technology, account, region string) bool {
	if _, ok := m[ExceptionKey{Technology: technology, Account: account, Region: region}]; ok {
		return true
	}
	_, ok := m[ExceptionKey{Technology: technology, Account: account}]
	return ok
}

// Watcher fetches all items of one technology.
type Watcher interface {
	// Index returns the technology name.
	Index() string
	// Slurp fetches the current items. Partial failures are reported
	// through the exception map instead of failing the whole run.
	Slurp(ctx context.Context) ([]ChangeItem, ExceptionMap, error)
}

// Registry holds the enabled watchers in run order.
type Registry struct {
	order    []string
	watchers map[string]Watcher
}

// NewRegistry creates an empty watcher registry.
func NewRegistry() *Registry {
	return &Registry{watchers: make(map[string]Watcher)}
}

// Register adds a watcher. Registering the same index twice is a
// programming error.
func (r *Registry) Register(w Watcher) error {
	if _, ok := r.watchers[w.Index()]; ok {
		return fmt.Errorf("watcher %q already registered", w.Index())
	}
	r.watchers[w.Index()] = w
	r.order = append(r.order, w.Index())
	return nil
}

// Get returns the watcher for a technology.
func (r *Registry) Get(index string) (Watcher, bool) {
	w, ok := r.watchers[index]
	return w, ok
}

// List returns the registered indexes in registration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FilterIgnored drops items whose name matches one of the ignore
// prefixes.
func FilterIgnored(items []ChangeItem, prefixes []string) []ChangeItem {
	if len(prefixes) == 0 {
		return items
	}
	out := items[:0]
	for _, it := range items {
		ignored := false
		for _, p := range prefixes {
			if strings.HasPrefix(it.Name, p) {
				ignored = true
				break
			}
		}
		if !ignored {
			out = append(out, it)
		}
	}
	return out
}

// ConfigEqual compares two stored configs structurally, ignoring the
// given ephemeral paths. Paths are dot separated; `*` descends into
// every element of a list or map.
func ConfigEqual(a, b json.RawMessage, ephemeral []string) (bool, error) {
	av, err := normalize(a, ephemeral)
	if err != nil {
		return false, err
	}
	bv, err := normalize(b, ephemeral)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(av, bv), nil
}

func normalize(raw json.RawMessage, ephemeral []string) (interface{}, error) {
	var v interface{}
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for _, path := range ephemeral {
		stripPath(v, strings.Split(path, "."))
	}
	return v, nil
}

func stripPath(v interface{}, parts []string) {
	if len(parts) == 0 {
		return
	}
	switch t := v.(type) {
	case map[string]interface{}:
		if len(parts) == 1 {
			if parts[0] == "*" {
				for k := range t {
					delete(t, k)
				}
			} else {
				delete(t, parts[0])
			}
			return
		}
		if parts[0] == "*" {
			for _, child := range t {
				stripPath(child, parts[1:])
			}
			return
		}
		stripPath(t[parts[0]], parts[1:])
	case []interface{}:
		if parts[0] != "*" {
			return
		}
		if len(parts) == 1 {
			return
		}
		for _, child := range t {
			stripPath(child, parts[1:])
		}
	}
}
