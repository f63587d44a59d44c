// Package kvstate provides a ready-made persisted data type: an ordered
// string key-value map with Set and Delete mutations, suitable for use with
// the durable store out of the box.
package kvstate

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/zhangyunhao116/skipmap"
)

const (
	mutationIDSet    uint32 = 1
	mutationIDDelete uint32 = 2
)

type table = skipmap.FuncMap[string, string]

func newTable() *table {
	return skipmap.NewFunc[string, string](func(a, b string) bool {
		return a < b
	})
}

// KV is an ordered key-value map safe for concurrent readers. All writes
// must go through the Set and Delete mutations of a durable store; direct
// modification would bypass the journal.
type KV struct {
	entries *table
}

func NewKV() *KV {
	return &KV{entries: newTable()}
}

// Get returns the value stored under key.
func (kv *KV) Get(key string) (string, bool) {
	return kv.entries.Load(key)
}

// Len returns the number of keys.
func (kv *KV) Len() int {
	return kv.entries.Len()
}

// Range calls fn for each entry in ascending key order until fn returns
// false.
func (kv *KV) Range(fn func(key, value string) bool) {
	kv.entries.Range(fn)
}

// MarshalCBOR serializes the map wholesale for the snapshot file.
func (kv *KV) MarshalCBOR() ([]byte, error) {
	m := make(map[string]string, kv.entries.Len())
	kv.entries.Range(func(k, v string) bool {
		m[k] = v
		return true
	})
	return cbor.Marshal(m)
}

// UnmarshalCBOR rebuilds the map from a snapshot image.
func (kv *KV) UnmarshalCBOR(buf []byte) error {
	var m map[string]string
	if err := cbor.Unmarshal(buf, &m); err != nil {
		return err
	}

	t := newTable()
	for k, v := range m {
		t.Store(k, v)
	}
	kv.entries = t
	return nil
}

// Set stores Value under Key. Its result is the previous value, or nil if
// the key was absent.
type Set struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

func (Set) MutationID() uint32 { return mutationIDSet }

func (m Set) Apply(kv *KV) any {
	prev, existed := kv.entries.Load(m.Key)
	kv.entries.Store(m.Key, m.Value)
	if !existed {
		return nil
	}
	return prev
}

// Delete removes Key. Its result reports whether the key existed.
type Delete struct {
	Key string `cbor:"key"`
}

func (Delete) MutationID() uint32 { return mutationIDDelete }

func (m Delete) Apply(kv *KV) any {
	_, existed := kv.entries.LoadAndDelete(m.Key)
	return existed
}
