// typed.go: generic strongly-typed wrapper over the opaque façade
//
// Grounded on the teacher's GenericCache[K,V] (cache_generic.go): a thin
// generic layer over a non-generic core, rebuilt here against Cache's
// Options-based signatures rather than copied, since the façade's value
// representation (live interface{} in object-mode, []byte in byte-mode)
// differs from the teacher's single in-process value type (design note
// "dynamic generic values over a byte backend", spec §9).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "context"

// Encoder converts a value of type T into the byte payload stored by a
// byte-mode backend.
type Encoder[T any] func(T) ([]byte, error)

// Decoder reconstructs a value of type T from a byte-mode payload.
type Decoder[T any] func([]byte) (T, error)

// Typed wraps a Cache with compile-time value types. Over an object-mode
// backend, values pass through untouched with a type assertion; over a
// byte-mode backend, Encode/Decode are applied on every Set/Get so
// callers never see raw bytes.
type Typed[T any] struct {
	cache  *Cache
	encode Encoder[T]
	decode Decoder[T]
}

// NewTyped wraps cache for values of type T. encode/decode are only
// invoked when cache is byte-mode; pass nil for both over an object-mode
// cache.
func NewTyped[T any](cache *Cache, encode Encoder[T], decode Decoder[T]) *Typed[T] {
	return &Typed[T]{cache: cache, encode: encode, decode: decode}
}

// Get looks up key and decodes it to T. found=false on a miss or expired
// entry, matching Cache.Get.
func (t *Typed[T]) Get(ctx context.Context, key string) (value T, found bool, err error) {
	raw, found, err := t.cache.Get(ctx, key)
	if err != nil || !found {
		return value, false, err
	}
	return t.fromRaw(raw)
}

// Exists reports whether key is present (fresh or stale) without decoding.
func (t *Typed[T]) Exists(ctx context.Context, key string) (bool, error) {
	return t.cache.Exists(ctx, key)
}

// Set encodes value (byte-mode only) and stores it under key.
func (t *Typed[T]) Set(ctx context.Context, key string, value T, opts Options) error {
	raw, err := t.toRaw(value)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, key, raw, opts)
}

// Remove deletes key.
func (t *Typed[T]) Remove(ctx context.Context, key string) error {
	return t.cache.Remove(ctx, key)
}

// InvalidateTag removes every key associated with tag.
func (t *Typed[T]) InvalidateTag(ctx context.Context, tag string) error {
	return t.cache.InvalidateTag(ctx, tag)
}

// InvalidateTags removes every key associated with any of tags.
func (t *Typed[T]) InvalidateTags(ctx context.Context, tags []string) error {
	return t.cache.InvalidateTags(ctx, tags)
}

// TypedFactory loads the value for a missing or expired key, for use with
// Typed.GetOrSet.
type TypedFactory[T any] func(ctx context.Context) (T, error)

// GetOrSet adapts factory to Cache.GetOrSet's untyped Factory, encoding
// its result (byte-mode only) and decoding the returned raw value back to
// T on every path, including a value served from an existing entry.
func (t *Typed[T]) GetOrSet(ctx context.Context, key string, factory TypedFactory[T], opts Options) (value T, err error) {
	raw, err := t.cache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		v, ferr := factory(ctx)
		if ferr != nil {
			return nil, ferr
		}
		return t.toRaw(v)
	}, opts)
	if err != nil {
		return value, err
	}
	decoded, _, err := t.fromRaw(raw)
	return decoded, err
}

func (t *Typed[T]) toRaw(value T) (interface{}, error) {
	if t.cache.Mode() != ModeByte {
		return value, nil
	}
	return t.encode(value)
}

func (t *Typed[T]) fromRaw(raw interface{}) (T, bool, error) {
	var value T
	if t.cache.Mode() != ModeByte {
		v, ok := raw.(T)
		if !ok {
			return value, false, NewErrWrongMode(ModeObject)
		}
		return v, true, nil
	}
	payload, ok := raw.([]byte)
	if !ok {
		return value, false, NewErrWrongMode(ModeByte)
	}
	decoded, err := t.decode(payload)
	if err != nil {
		return value, false, err
	}
	return decoded, true, nil
}
