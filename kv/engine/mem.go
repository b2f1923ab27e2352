package engine

import (
	"bytes"
	"math"

	"github.com/petar/GoLLRB/llrb"

	"github.com/pingcap-incubator/cloudkv/kv/util/codec"
)

// MemEngine is an in-memory engine satisfying the same snapshot contract as
// the badger Engine. Data is not written to disk. It is intended for testing
// only; writes must not race with open snapshots.
type MemEngine struct {
	trees map[string]*llrb.LLRB
}

func NewMem() *MemEngine {
	trees := make(map[string]*llrb.LLRB, len(CFs))
	for _, cf := range CFs {
		trees[cf] = llrb.New()
	}
	return &MemEngine{trees: trees}
}

// Write applies a batch. The same key materialization rules as the badger
// engine apply: write-family keys gain a descending commit-version suffix.
func (e *MemEngine) Write(wb *WriteBatch) error {
	for _, entry := range wb.entries {
		tree := e.trees[entry.cf]
		key := memKey(entry)
		if entry.delete {
			tree.Delete(memItem{key: key})
			continue
		}
		tree.ReplaceOrInsert(memItem{key: key, value: entry.value, meta: entry.meta})
	}
	return nil
}

func (e *MemEngine) NewSnapshot() *MemSnapshot {
	return &MemSnapshot{engine: e}
}

// Len returns the number of entries in a family.
func (e *MemEngine) Len(cf string) int {
	return e.trees[cf].Len()
}

func memKey(entry writeEntry) []byte {
	if entry.cf == CfWrite {
		return codec.EncodeKey(entry.key, entry.meta.CommitTS())
	}
	return entry.key
}

type memItem struct {
	key   []byte
	value []byte
	meta  UserMeta
}

func (it memItem) Less(than llrb.Item) bool {
	return bytes.Compare(it.key, than.(memItem).key) < 0
}

// MemSnapshot is the SnapAccess view of a MemEngine.
type MemSnapshot struct {
	engine *MemEngine
}

func (s *MemSnapshot) Get(cf string, key []byte, tsCeiling uint64) (Item, error) {
	tree := s.engine.trees[cf]
	if cf == CfWrite {
		if tsCeiling == 0 {
			tsCeiling = math.MaxUint64
		}
		var found *memItem
		tree.AscendGreaterOrEqual(memItem{key: codec.EncodeKey(key, tsCeiling)}, func(i llrb.Item) bool {
			item := i.(memItem)
			found = &item
			return false
		})
		if found == nil || !bytes.Equal(codec.DecodeUserKey(found.key), key) {
			return nil, nil
		}
		return &ownedItem{key: key, value: found.value, meta: found.meta}, nil
	}
	result := tree.Get(memItem{key: key})
	if result == nil {
		return nil, nil
	}
	item := result.(memItem)
	return &ownedItem{key: key, value: item.value, meta: item.meta}, nil
}

func (s *MemSnapshot) NewIterator(cf string, reverse, allVersions bool) Iterator {
	return &memIterator{
		tree:        s.engine.trees[cf],
		versioned:   cf == CfWrite,
		reverse:     reverse,
		allVersions: allVersions,
	}
}

func (s *MemSnapshot) Discard() {}

// memIterator materializes the portion of the tree from the seek position
// onward and walks the slice.
type memIterator struct {
	tree        *llrb.LLRB
	versioned   bool
	reverse     bool
	allVersions bool
	items       []memItem
	index       int
}

func (it *memIterator) fill(pivot llrb.Item) {
	it.items = it.items[:0]
	it.index = 0
	collect := func(i llrb.Item) bool {
		it.items = append(it.items, i.(memItem))
		return true
	}
	if it.reverse {
		if pivot == nil {
			pivot = it.tree.Max()
			if pivot == nil {
				return
			}
		}
		it.tree.DescendLessOrEqual(pivot, collect)
		return
	}
	if pivot == nil {
		pivot = memItem{}
	}
	it.tree.AscendGreaterOrEqual(pivot, collect)
}

func (it *memIterator) Seek(key []byte) {
	if it.versioned {
		// Position at the newest version of key.
		it.fill(memItem{key: codec.EncodeBytes(key)})
		return
	}
	it.fill(memItem{key: key})
}

func (it *memIterator) Rewind() {
	it.fill(nil)
}

func (it *memIterator) Valid() bool {
	return it.index < len(it.items)
}

func (it *memIterator) Next() {
	if it.versioned && !it.allVersions {
		current := it.userKey(it.index)
		for it.index++; it.Valid(); it.index++ {
			if !bytes.Equal(it.userKey(it.index), current) {
				return
			}
		}
		return
	}
	it.index++
}

func (it *memIterator) Item() Item {
	item := it.items[it.index]
	key := item.key
	if it.versioned {
		key = codec.DecodeUserKey(key)
	}
	return &ownedItem{key: key, value: item.value, meta: item.meta}
}

func (it *memIterator) Close() {}

func (it *memIterator) userKey(index int) []byte {
	return codec.DecodeUserKey(it.items[index].key)
}
