package cache

import "context"

// Recorder receives hit and miss counts per named cache.
type Recorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type instrumented[V any] struct {
	Store[V]
	name     string
	recorder Recorder
}

// Instrument reports every Get on store to recorder under name.
func Instrument[V any](store Store[V], name string, recorder Recorder) Store[V] {
	if recorder == nil {
		return store
	}
	return &instrumented[V]{Store: store, name: name, recorder: recorder}
}

func (i *instrumented[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := i.Store.Get(ctx, key)
	if ok {
		i.recorder.RecordCacheHit(i.name)
	} else {
		i.recorder.RecordCacheMiss(i.name)
	}
	return v, ok
}
