package spi

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/search"
	"go.kotori.dev/arbor/signal"
	"go.kotori.dev/arbor/unique"
)

// Argument names used in call args and hook event payloads.
const (
	ArgResource = "resource"
	ArgUID      = "uid"
	ArgFilters  = "filters"
	ArgOrder    = "order"
	ArgLimit    = "limit"
	ArgQuery    = "query"
)

// ErrUnsavedResource is returned when an operation needs a persisted
// resource but the given one has no uid yet.
var ErrUnsavedResource = errors.New("arbor/spi: resource has not been persisted")

// lockPlan is what the planning phase computes outside the transaction.
type lockPlan struct {
	locks []unique.Pair
	stale []unique.Pair
	// force promotes regardless of computed pairs. Delete sets it when
	// the schema declares unique properties, because the values are only
	// known after the in-transaction fetch.
	force bool
}

// Method is the uniform envelope around one resource operation.
type Method struct {
	code       string
	actionName string
	sender     any

	pre    *signal.Signal
	post   *signal.Signal
	action *signal.Signal

	client arbor.Client
	co     *unique.Coordinator
	schema *arbor.Schema
	index  search.Index

	observer CallObserver

	plan    func(ctx context.Context, p *lockPlan, args map[string]any) error
	prepare func(ctx context.Context, cs *callState, args map[string]any) error
	after   func(args map[string]any)
}

func newMethod(client arbor.Client, s *arbor.Schema, code, qualifier string, sender any) *Method {
	actionName := code
	if qualifier != "" {
		actionName = qualifier + "." + code
	}

	m := &Method{
		code:       code,
		actionName: actionName,
		client:     client,
		co:         unique.NewCoordinator(client),
		schema:     s,
		pre:        signal.New("pre_" + code),
		post:       signal.New("post_" + code),
		action:     signal.New(actionName),
	}
	if sender == nil {
		sender = m
	}
	m.sender = sender
	return m
}

// Code returns the method code, "insert", "get" and so on.
func (m *Method) Code() string { return m.code }

// PreHookName returns the name the pre signal fires under.
func (m *Method) PreHookName() string { return "pre_" + m.code }

// PostHookName returns the name the post signal fires under.
func (m *Method) PostHookName() string { return "post_" + m.code }

// ActionName returns the operation signal name, qualified by the
// owning resource when the method is part of an API tree.
func (m *Method) ActionName() string { return m.actionName }

// Pre returns the pre signal for subscription.
func (m *Method) Pre() *signal.Signal { return m.pre }

// Post returns the post signal for subscription.
func (m *Method) Post() *signal.Signal { return m.post }

// Action returns the operation signal for subscription.
func (m *Method) Action() *signal.Signal { return m.action }

// Sender returns the identity hook events carry: the owning API node
// for tree methods, the method itself for standalone ones.
func (m *Method) Sender() any { return m.sender }

// Schema returns the resource declaration the method operates on.
func (m *Method) Schema() *arbor.Schema { return m.schema }

// SetObserver instruments the method. Pass nil to turn instrumentation
// off. Set it during wiring; concurrent calls do not synchronize with
// it.
func (m *Method) SetObserver(o CallObserver) { m.observer = o }

// promote decides per call whether the chain runs in a transaction:
// either lock work was computed, or a pre or post receiver is present
// and may need atomicity with the operation. Re-evaluated every call
// since receivers come and go over a process lifetime.
func (m *Method) promote(p *lockPlan) bool {
	return len(p.locks) > 0 || len(p.stale) > 0 || p.force ||
		m.pre.HasReceivers() || m.post.HasReceivers()
}

// Call dispatches the method synchronously: plan, then pre, operation
// and post, inside one transaction when the call requires it. Errors
// from any receiver or from the operation abort the rest of the chain
// and reach the caller unwrapped. A backend may re-run the transaction
// body on a commit conflict; receivers observe every attempt.
func (m *Method) Call(ctx context.Context, args map[string]any) (any, error) {
	started := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	var p lockPlan
	if m.plan != nil {
		if err := m.plan(ctx, &p, args); err != nil {
			m.observe(ctx, started, false, err)
			return nil, err
		}
	}

	promoted := m.promote(&p)
	var result any
	if promoted {
		_, err := m.client.RunInTransaction(ctx, func(tx arbor.Transaction) error {
			cs := &callState{tx: tx, locks: p.locks, stale: p.stale}
			v, err := m.run(withCallState(ctx, cs), cs, args)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
		if err != nil {
			m.observe(ctx, started, promoted, err)
			return nil, err
		}
	} else {
		cs := &callState{locks: p.locks, stale: p.stale}
		v, err := m.run(withCallState(ctx, cs), cs, args)
		if err != nil {
			m.observe(ctx, started, promoted, err)
			return nil, err
		}
		result = v
	}

	if m.after != nil {
		m.after(args)
	}
	m.observe(ctx, started, promoted, nil)
	return result, nil
}

func (m *Method) observe(ctx context.Context, started time.Time, promoted bool, err error) {
	if m.observer == nil {
		return
	}
	m.observer.ObserveCall(ctx, CallObservation{
		Method:   m.actionName,
		Code:     m.code,
		Promoted: promoted,
		Err:      err,
		Duration: time.Since(started),
	})
}

// Invoke dispatches the method asynchronously and returns a Future for
// the result.
func (m *Method) Invoke(ctx context.Context, args map[string]any) *Future {
	f := newFuture()
	go func() {
		v, err := m.Call(ctx, args)
		f.resolve(v, err)
	}()
	return f
}

func (m *Method) run(ctx context.Context, cs *callState, args map[string]any) (any, error) {
	if m.prepare != nil {
		if err := m.prepare(ctx, cs, args); err != nil {
			return nil, err
		}
	}

	if _, err := m.pre.Send(ctx, &signal.Event{Name: m.PreHookName(), Sender: m.sender, Args: args}); err != nil {
		return nil, err
	}

	results, err := m.action.Send(ctx, &signal.Event{Name: m.actionName, Sender: m.sender, Args: args})
	if err != nil {
		return nil, err
	}
	result := signal.First(results)

	if _, err := m.post.Send(ctx, &signal.Event{Name: m.PostHookName(), Sender: m.sender, Args: args, Result: result}); err != nil {
		return nil, err
	}

	return result, nil
}

// NewUID allocates a resource identifier: a random UUID in compact hex
// form.
func NewUID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func resourceArg(args map[string]any) (*arbor.Resource, error) {
	res, ok := args[ArgResource].(*arbor.Resource)
	if !ok || res == nil {
		return nil, errors.New("arbor/spi: args lack a resource")
	}
	return res, nil
}

func uidArg(args map[string]any) (string, error) {
	uid, ok := args[ArgUID].(string)
	if !ok || uid == "" {
		return "", errors.New("arbor/spi: args lack a uid")
	}
	return uid, nil
}
