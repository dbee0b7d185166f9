package store

import "sync"

// keyPool recycles the scratch buffers used to assemble badger keys on
// read paths. The longest key this store produces is a progress record's
// composite key, "progress:usr_<21>:bok_<21>", well under 128 bytes, so
// one pooled buffer covers every lookup.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// buildKey assembles "<prefix><id>" in a pooled buffer. The slice is only
// valid until releaseKey; callers must not retain it past the lookup.
//
//	key := buildKey("book:", bookID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// buildIndexKey assembles "<prefix>idx:<name>:<value>" for secondary-index
// lookups, currently just the case-folded user email index. Same lifetime
// rules as buildKey.
func buildIndexKey(prefix, indexName, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, indexName...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	return buf
}

// releaseKey returns a key buffer to the pool. Buffers that grew past the
// expected key sizes are dropped instead of pooled.
func releaseKey(key []byte) {
	if cap(key) <= 256 {
		keyPool.Put(key[:0])
	}
}
