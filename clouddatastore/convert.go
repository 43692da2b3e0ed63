package clouddatastore

import (
	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

func fromKey(key arbor.Key) *keyImpl {
	if key == nil {
		return nil
	}
	if k, ok := key.(*keyImpl); ok {
		return k
	}
	return &keyImpl{
		kind:      key.Kind(),
		id:        key.ID(),
		name:      key.Name(),
		parent:    fromKey(key.ParentKey()),
		namespace: key.Namespace(),
	}
}

func toOriginalKey(key arbor.Key) *datastore.Key {
	if key == nil {
		return nil
	}

	return &datastore.Key{
		Kind:      key.Kind(),
		ID:        key.ID(),
		Name:      key.Name(),
		Parent:    toOriginalKey(key.ParentKey()),
		Namespace: key.Namespace(),
	}
}

func toOriginalKeys(keys []arbor.Key) []*datastore.Key {
	if keys == nil {
		return nil
	}

	origKeys := make([]*datastore.Key, len(keys))
	for idx, key := range keys {
		origKeys[idx] = toOriginalKey(key)
	}

	return origKeys
}

func toWrapperKey(key *datastore.Key) *keyImpl {
	if key == nil {
		return nil
	}

	return &keyImpl{
		kind:      key.Kind,
		id:        key.ID,
		name:      key.Name,
		parent:    toWrapperKey(key.Parent),
		namespace: key.Namespace,
	}
}

func toWrapperKeys(keys []*datastore.Key) []arbor.Key {
	if keys == nil {
		return nil
	}

	wKeys := make([]arbor.Key, len(keys))
	for idx, key := range keys {
		wKeys[idx] = toWrapperKey(key)
	}

	return wKeys
}

func toOriginalPendingKey(pKey arbor.PendingKey) *datastore.PendingKey {
	if pKey == nil {
		return nil
	}
	pk, ok := pKey.StoredContext().Value(contextPendingKey{}).(*pendingKeyImpl)
	if !ok || pk == nil {
		return nil
	}

	return pk.pendingKey
}

func toWrapperPendingKeys(keys []*datastore.PendingKey) []arbor.PendingKey {
	if keys == nil {
		return nil
	}

	wKeys := make([]arbor.PendingKey, len(keys))
	for idx, key := range keys {
		wKeys[idx] = &pendingKeyImpl{pendingKey: key}
	}

	return wKeys
}

// toWrapperError maps the service's sentinels onto this module's. Other
// errors pass through untouched, gRPC status included.
func toWrapperError(err error) error {
	switch {
	case err == nil:
		return nil

	case err == datastore.ErrNoSuchEntity:
		return arbor.ErrNoSuchEntity

	case err == datastore.ErrConcurrentTransaction:
		return arbor.ErrConcurrentTransaction

	case err == datastore.ErrInvalidKey:
		return arbor.ErrInvalidKey
	}

	if merr, ok := err.(datastore.MultiError); ok {
		newErr := make(arbor.MultiError, 0, len(merr))
		for _, err := range merr {
			newErr = append(newErr, toWrapperError(err))
		}
		return newErr
	}

	return err
}

func toOriginalEntity(entity *arbor.Entity) *datastore.Entity {
	if entity == nil {
		return nil
	}

	return &datastore.Entity{
		Key:        toOriginalKey(entity.Key),
		Properties: toOriginalPropertyList(entity.Properties),
	}
}

func toWrapperEntity(entity *datastore.Entity) *arbor.Entity {
	if entity == nil {
		return nil
	}

	return &arbor.Entity{
		Key:        toWrapperKey(entity.Key),
		Properties: toWrapperPropertyList(entity.Properties),
	}
}

func toOriginalValue(v any) any {
	switch v := v.(type) {
	case []any:
		origVs := make([]any, 0, len(v))
		for _, e := range v {
			origVs = append(origVs, toOriginalValue(e))
		}
		return origVs

	case *arbor.Entity:
		return toOriginalEntity(v)

	case arbor.Key:
		return toOriginalKey(v)

	case arbor.GeoPoint:
		return datastore.GeoPoint{Lat: v.Lat, Lng: v.Lng}

	default:
		return v
	}
}

func toWrapperValue(v any) any {
	switch v := v.(type) {
	case []any:
		wVs := make([]any, 0, len(v))
		for _, e := range v {
			wVs = append(wVs, toWrapperValue(e))
		}
		return wVs

	case *datastore.Entity:
		return toWrapperEntity(v)

	case *datastore.Key:
		return toWrapperKey(v)

	case datastore.GeoPoint:
		return arbor.GeoPoint{Lat: v.Lat, Lng: v.Lng}

	default:
		return v
	}
}

func toOriginalPropertyList(ps arbor.PropertyList) datastore.PropertyList {
	if ps == nil {
		return nil
	}

	newPs := make(datastore.PropertyList, 0, len(ps))
	for _, p := range ps {
		newPs = append(newPs, datastore.Property{
			Name:    p.Name,
			Value:   toOriginalValue(p.Value),
			NoIndex: p.NoIndex,
		})
	}

	return newPs
}

func toOriginalPropertyListList(pss []arbor.PropertyList) []datastore.PropertyList {
	if pss == nil {
		return nil
	}

	newPss := make([]datastore.PropertyList, 0, len(pss))
	for _, ps := range pss {
		newPss = append(newPss, toOriginalPropertyList(ps))
	}

	return newPss
}

func toWrapperPropertyList(ps datastore.PropertyList) arbor.PropertyList {
	if ps == nil {
		return nil
	}

	newPs := make(arbor.PropertyList, 0, len(ps))
	for _, p := range ps {
		newPs = append(newPs, arbor.Property{
			Name:    p.Name,
			Value:   toWrapperValue(p.Value),
			NoIndex: p.NoIndex,
		})
	}

	return newPs
}
