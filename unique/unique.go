// Package unique enforces property uniqueness with lock entities. A
// lock is an identity-only entity whose key name encodes kind, property
// and value; whoever holds the key owns the value. Enforcement runs in
// two phases: a racy PreCheck outside the transaction fails fast, and
// Reserve inside the transaction settles ownership for real. When two
// transactions reserve the same value concurrently, commit-time
// first-committer-wins decides, and the loser observes the winner's
// lock on retry.
package unique

import (
	"context"
	"fmt"
	"reflect"

	"go.kotori.dev/arbor"
)

// LockKind is the datastore kind lock entities are stored under.
const LockKind = "UniqueLock"

// Pair is one value claim: the property and the value to own.
type Pair struct {
	Property string
	Value    any
}

// LockName builds the lock key name for one claim.
func LockName(kind string, p Pair) string {
	return fmt.Sprintf("%s.%s.%v", kind, p.Property, p.Value)
}

// Collect gathers the claims a resource needs before it can be
// persisted. Without force only properties assigned since the last
// reset count, and assignments that kept the old value produce no
// claim. With force every unique property counts, which insert and
// delete use. Empty values are exempt from uniqueness.
func Collect(s *arbor.Schema, r *arbor.Resource, force bool) []Pair {
	changes := r.Changes()

	var pairs []Pair
	for _, prop := range s.UniqueProperties() {
		v, ok := r.Get(prop)
		if !ok || emptyValue(v) {
			continue
		}
		if !force {
			c, modified := changes[prop]
			if !modified || sameValue(c.Old, c.New) {
				continue
			}
		}
		pairs = append(pairs, Pair{Property: prop, Value: v})
	}
	return pairs
}

// Stale gathers the claims a resource no longer needs: the old values
// of unique properties that were assigned a different value since the
// last reset. Update releases these after reserving the new ones.
func Stale(s *arbor.Schema, r *arbor.Resource) []Pair {
	changes := r.Changes()

	var pairs []Pair
	for _, prop := range s.UniqueProperties() {
		c, modified := changes[prop]
		if !modified || sameValue(c.Old, c.New) {
			continue
		}
		if emptyValue(c.Old) {
			continue
		}
		pairs = append(pairs, Pair{Property: prop, Value: c.Old})
	}
	return pairs
}

// Coordinator runs the lock protocol against one backend client.
type Coordinator struct {
	client arbor.Client
}

// NewCoordinator returns a coordinator bound to client.
func NewCoordinator(client arbor.Client) *Coordinator {
	return &Coordinator{client: client}
}

func (c *Coordinator) lockKeys(kind string, pairs []Pair) []arbor.Key {
	keys := make([]arbor.Key, len(pairs))
	for idx, p := range pairs {
		keys[idx] = c.client.NameKey(LockKind, LockName(kind, p), nil)
	}
	return keys
}

// PreCheck probes the claims outside any transaction and fails fast
// with a UniqueConstraintError naming every property whose value is
// already owned. The probe races with concurrent writers; Reserve is
// the authoritative check.
func (c *Coordinator) PreCheck(ctx context.Context, kind string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	keys := c.lockKeys(kind, pairs)
	psList := make([]arbor.PropertyList, len(keys))
	err := c.client.GetMulti(ctx, keys, psList)

	var taken []string
	if err == nil {
		for _, p := range pairs {
			taken = append(taken, p.Property)
		}
	} else if merr, ok := err.(arbor.MultiError); ok {
		for idx, e := range merr {
			switch e {
			case nil:
				taken = append(taken, pairs[idx].Property)
			case arbor.ErrNoSuchEntity:
				// value is free
			default:
				return e
			}
		}
	} else {
		return err
	}

	if len(taken) > 0 {
		return &arbor.UniqueConstraintError{Kind: kind, Properties: taken}
	}
	return nil
}

// Reserve claims the pairs inside tx. Every lock key is read first;
// any key that already exists marks its property as lost and no lock
// is written. When all claims are free the missing locks are put in
// one call and the commit settles ownership.
func (c *Coordinator) Reserve(tx arbor.Transaction, kind string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	keys := c.lockKeys(kind, pairs)
	psList := make([]arbor.PropertyList, len(keys))
	err := tx.GetMulti(keys, psList)

	var taken []string
	var freeKeys []arbor.Key
	if err == nil {
		for _, p := range pairs {
			taken = append(taken, p.Property)
		}
	} else if merr, ok := err.(arbor.MultiError); ok {
		for idx, e := range merr {
			switch e {
			case nil:
				taken = append(taken, pairs[idx].Property)
			case arbor.ErrNoSuchEntity:
				freeKeys = append(freeKeys, keys[idx])
			default:
				return e
			}
		}
	} else {
		return err
	}

	if len(taken) > 0 {
		return &arbor.UniqueConstraintError{Kind: kind, Properties: taken}
	}

	emptyPs := make([]arbor.PropertyList, len(freeKeys))
	for idx := range emptyPs {
		emptyPs[idx] = arbor.PropertyList{}
	}
	if _, err := tx.PutMulti(freeKeys, emptyPs); err != nil {
		return err
	}
	return nil
}

// Release frees the claims inside tx. Releasing a claim nobody holds
// is not an error.
func (c *Coordinator) Release(tx arbor.Transaction, kind string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	return tx.DeleteMulti(c.lockKeys(kind, pairs))
}

func sameValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return rv.Len() == 0
	}
	return rv.IsZero()
}
