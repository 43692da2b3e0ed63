package clouddatastore

import (
	"fmt"

	"cloud.google.com/go/datastore"

	"go.kotori.dev/arbor"
)

// The client and the transaction run the same conversion path and only
// differ in the service call at the center. These helpers hold the
// shared part.

type getCall func(keys []*datastore.Key, dst []datastore.PropertyList) error
type putCall func(keys []*datastore.Key, src []datastore.PropertyList) ([]arbor.Key, []arbor.PendingKey, error)
type deleteCall func(keys []*datastore.Key) error

func getMultiWith(keys []arbor.Key, psList []arbor.PropertyList, call getCall) error {
	if len(keys) != len(psList) {
		return fmt.Errorf("arbor/clouddatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}
	if len(keys) == 0 {
		return nil
	}

	origKeys := toOriginalKeys(keys)
	origPss := make([]datastore.PropertyList, len(keys))
	err := call(origKeys, origPss)
	if merr, ok := err.(datastore.MultiError); ok {
		newErr := make(arbor.MultiError, len(keys))
		foundErr := false
		for idx, err := range merr {
			if err != nil {
				newErr[idx] = toWrapperError(err)
				foundErr = true
				continue
			}
			psList[idx] = toWrapperPropertyList(origPss[idx])
		}
		if foundErr {
			return newErr
		}
		return nil
	} else if err != nil {
		return toWrapperError(err)
	}

	for idx := range keys {
		psList[idx] = toWrapperPropertyList(origPss[idx])
	}

	return nil
}

func putMultiWith(keys []arbor.Key, psList []arbor.PropertyList, call putCall) ([]arbor.Key, []arbor.PendingKey, error) {
	if len(keys) != len(psList) {
		return nil, nil, fmt.Errorf("arbor/clouddatastore: keys and psList length mismatch %d != %d", len(keys), len(psList))
	}
	if len(keys) == 0 {
		return nil, nil, nil
	}

	origKeys := toOriginalKeys(keys)
	origPss := toOriginalPropertyListList(psList)
	newKeys, pKeys, err := call(origKeys, origPss)
	if err != nil {
		return nil, nil, toWrapperError(err)
	}

	return newKeys, pKeys, nil
}

func deleteMultiWith(keys []arbor.Key, call deleteCall) error {
	if len(keys) == 0 {
		return nil
	}
	return toWrapperError(call(toOriginalKeys(keys)))
}
