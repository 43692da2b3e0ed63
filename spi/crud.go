package spi

import (
	"context"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/signal"
	"go.kotori.dev/arbor/unique"
)

// NewInsertMethod returns the insert specialization for s. Every
// unique property the resource carries is claimed, the resource is
// persisted under its uid (allocated when absent), and the uid is the
// result. qualifier namespaces the action signal; a nil sender means
// the method stands alone and emits with itself as sender.
func NewInsertMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any) *Method {
	m := newMethod(client, s, "insert", qualifier, sender)
	m.plan = m.planInsert
	m.after = resetTracking
	m.action.Connect(m.opInsert)
	return m
}

// NewGetMethod returns the get specialization for s. The result is the
// hydrated resource; a missing uid surfaces ErrNoSuchEntity.
func NewGetMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any) *Method {
	m := newMethod(client, s, "get", qualifier, sender)
	m.action.Connect(m.opGet)
	return m
}

// NewUpdateMethod returns the update specialization for s. New unique
// values are claimed before the stale ones are released, then the
// resource is persisted; the uid is the result.
func NewUpdateMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any) *Method {
	m := newMethod(client, s, "update", qualifier, sender)
	m.plan = m.planUpdate
	m.after = resetTracking
	m.action.Connect(m.opUpdate)
	return m
}

// NewDeleteMethod returns the delete specialization for s. The current
// entity is fetched first to learn its unique values, every claim is
// released and the entity removed; the uid is the result.
func NewDeleteMethod(client arbor.Client, s *arbor.Schema, qualifier string, sender any) *Method {
	m := newMethod(client, s, "delete", qualifier, sender)
	m.plan = m.planDelete
	m.prepare = m.prepareDelete
	m.action.Connect(m.opDelete)
	return m
}

func resetTracking(args map[string]any) {
	if res, ok := args[ArgResource].(*arbor.Resource); ok && res != nil {
		res.ResetTracking()
	}
}

func (m *Method) resourceKey(uid string) arbor.Key {
	return m.client.NameKey(m.schema.Kind, uid, nil)
}

func (m *Method) getEntity(ctx context.Context, cs *callState, key arbor.Key) (arbor.PropertyList, error) {
	if cs.tx != nil {
		return cs.tx.Get(key)
	}
	return m.client.Get(ctx, key)
}

func (m *Method) putEntity(ctx context.Context, cs *callState, key arbor.Key, ps arbor.PropertyList) error {
	if cs.tx != nil {
		_, err := cs.tx.Put(key, ps)
		return err
	}
	_, err := m.client.Put(ctx, key, ps)
	return err
}

func (m *Method) deleteEntity(ctx context.Context, cs *callState, key arbor.Key) error {
	if cs.tx != nil {
		return cs.tx.Delete(key)
	}
	return m.client.Delete(ctx, key)
}

func (m *Method) planInsert(ctx context.Context, p *lockPlan, args map[string]any) error {
	res, err := resourceArg(args)
	if err != nil {
		return err
	}
	// nothing has a prior stored value, every unique property counts
	p.locks = unique.Collect(m.schema, res, true)
	return m.co.PreCheck(ctx, m.schema.Kind, p.locks)
}

func (m *Method) planUpdate(ctx context.Context, p *lockPlan, args map[string]any) error {
	res, err := resourceArg(args)
	if err != nil {
		return err
	}
	if res.UID() == "" {
		return ErrUnsavedResource
	}
	p.locks = unique.Collect(m.schema, res, false)
	p.stale = unique.Stale(m.schema, res)
	return m.co.PreCheck(ctx, m.schema.Kind, p.locks)
}

func (m *Method) planDelete(ctx context.Context, p *lockPlan, args map[string]any) error {
	if _, err := uidArg(args); err != nil {
		return err
	}
	// values to unlock are only known after the in-transaction fetch
	p.force = len(m.schema.UniqueProperties()) > 0
	return nil
}

func (m *Method) prepareDelete(ctx context.Context, cs *callState, args map[string]any) error {
	uid, err := uidArg(args)
	if err != nil {
		return err
	}
	ps, err := m.getEntity(ctx, cs, m.resourceKey(uid))
	if err != nil {
		return err
	}
	cs.current = arbor.FromPropertyList(m.schema, uid, ps)
	cs.locks = unique.Collect(m.schema, cs.current, true)
	// receivers observe the doomed entity under the resource arg
	args[ArgResource] = cs.current
	return nil
}

func (m *Method) opInsert(ctx context.Context, ev *signal.Event) (any, error) {
	cs := stateFromContext(ctx)
	res, err := resourceArg(ev.Args)
	if err != nil {
		return nil, err
	}

	if err := m.co.Reserve(cs.tx, m.schema.Kind, cs.locks); err != nil {
		return nil, err
	}

	uid := res.UID()
	if uid == "" {
		uid = NewUID()
	}
	if err := m.putEntity(ctx, cs, m.resourceKey(uid), res.PropertyList()); err != nil {
		return nil, err
	}
	res.SetUID(uid)
	return uid, nil
}

func (m *Method) opGet(ctx context.Context, ev *signal.Event) (any, error) {
	cs := stateFromContext(ctx)
	uid, err := uidArg(ev.Args)
	if err != nil {
		return nil, err
	}

	ps, err := m.getEntity(ctx, cs, m.resourceKey(uid))
	if err != nil {
		return nil, err
	}
	return arbor.FromPropertyList(m.schema, uid, ps), nil
}

func (m *Method) opUpdate(ctx context.Context, ev *signal.Event) (any, error) {
	cs := stateFromContext(ctx)
	res, err := resourceArg(ev.Args)
	if err != nil {
		return nil, err
	}
	uid := res.UID()
	if uid == "" {
		return nil, ErrUnsavedResource
	}

	// new claims land strictly before the stale release, so the old
	// value is never observable as free while the new one is unclaimed
	if err := m.co.Reserve(cs.tx, m.schema.Kind, cs.locks); err != nil {
		return nil, err
	}
	if err := m.co.Release(cs.tx, m.schema.Kind, cs.stale); err != nil {
		return nil, err
	}
	if err := m.putEntity(ctx, cs, m.resourceKey(uid), res.PropertyList()); err != nil {
		return nil, err
	}
	return uid, nil
}

func (m *Method) opDelete(ctx context.Context, ev *signal.Event) (any, error) {
	cs := stateFromContext(ctx)
	uid, err := uidArg(ev.Args)
	if err != nil {
		return nil, err
	}

	if err := m.co.Release(cs.tx, m.schema.Kind, cs.locks); err != nil {
		return nil, err
	}
	if err := m.deleteEntity(ctx, cs, m.resourceKey(uid)); err != nil {
		return nil, err
	}
	return uid, nil
}
