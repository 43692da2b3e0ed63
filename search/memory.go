package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var _ Index = &Memory{}

// Memory is an inverted index held in process memory. Terms are
// lowercased runs of letters and digits; a query matches a document
// when every query term appears in it.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string]map[string]Document            // kind -> uid -> doc
	terms map[string]map[string]map[string]struct{} // kind -> term -> uid set
}

// NewMemory returns an empty index.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string]Document),
		terms: make(map[string]map[string]map[string]struct{}),
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (m *Memory) Put(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(doc.Kind, doc.UID)

	docs := m.docs[doc.Kind]
	if docs == nil {
		docs = make(map[string]Document)
		m.docs[doc.Kind] = docs
	}
	docs[doc.UID] = doc

	terms := m.terms[doc.Kind]
	if terms == nil {
		terms = make(map[string]map[string]struct{})
		m.terms[doc.Kind] = terms
	}
	for _, text := range doc.Fields {
		for _, term := range tokenize(text) {
			uids := terms[term]
			if uids == nil {
				uids = make(map[string]struct{})
				terms[term] = uids
			}
			uids[doc.UID] = struct{}{}
		}
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, kind, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(kind, uid)
	return nil
}

func (m *Memory) removeLocked(kind, uid string) {
	docs := m.docs[kind]
	if _, ok := docs[uid]; !ok {
		return
	}
	delete(docs, uid)

	for term, uids := range m.terms[kind] {
		delete(uids, uid)
		if len(uids) == 0 {
			delete(m.terms[kind], term)
		}
	}
}

// Search returns the documents of kind matching every term in query,
// sorted by uid. An empty query matches every document of the kind.
func (m *Memory) Search(ctx context.Context, kind, query string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTerms := tokenize(query)

	var uids []string
	if len(queryTerms) == 0 {
		for uid := range m.docs[kind] {
			uids = append(uids, uid)
		}
	} else {
		terms := m.terms[kind]
		candidates := terms[queryTerms[0]]
		for uid := range candidates {
			match := true
			for _, term := range queryTerms[1:] {
				if _, ok := terms[term][uid]; !ok {
					match = false
					break
				}
			}
			if match {
				uids = append(uids, uid)
			}
		}
	}
	sort.Strings(uids)

	docs := make([]Document, 0, len(uids))
	for _, uid := range uids {
		docs = append(docs, m.docs[kind][uid])
	}
	return docs, nil
}
