// tagindex.go: process-local bidirectional tag/key index
//
// Tag-based invalidation is process-local even when the value backend is
// remote (spec §1 non-goals, §9): two processes sharing an external byte
// store each hold their own tag graph.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "sync"

// TagIndex maintains tag -> keys and key -> tags in lockstep, so that
// (tag, key) in tagToKeys iff tag in keyToTags[key] (spec §4.4 invariant).
type TagIndex struct {
	mu        sync.Mutex
	tagToKeys map[string]map[string]struct{}
	keyToTags map[string]map[string]struct{}
}

// NewTagIndex constructs an empty tag index.
func NewTagIndex() *TagIndex {
	return &TagIndex{
		tagToKeys: make(map[string]map[string]struct{}),
		keyToTags: make(map[string]map[string]struct{}),
	}
}

// Associate replaces any prior tag set for key with tags (possibly empty).
// The prior set is fully detached from tagToKeys first, so stale (tag,
// key) pairs never linger.
func (t *TagIndex) Associate(key string, tags []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.detachLocked(key)

	if len(tags) == 0 {
		return
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
		bucket, ok := t.tagToKeys[tag]
		if !ok {
			bucket = make(map[string]struct{})
			t.tagToKeys[tag] = bucket
		}
		bucket[key] = struct{}{}
	}
	t.keyToTags[key] = set
}

// Detach removes all associations for key.
func (t *TagIndex) Detach(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked(key)
}

// detachLocked must be called with t.mu held.
func (t *TagIndex) detachLocked(key string) {
	tags, ok := t.keyToTags[key]
	if !ok {
		return
	}
	for tag := range tags {
		bucket := t.tagToKeys[tag]
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(t.tagToKeys, tag)
		}
	}
	delete(t.keyToTags, key)
}

// KeysFor returns a point-in-time snapshot of the keys associated with
// tag. Callers iterate the returned slice without holding any lock.
func (t *TagIndex) KeysFor(tag string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket, ok := t.tagToKeys[tag]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	return keys
}
