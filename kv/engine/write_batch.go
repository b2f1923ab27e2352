package engine

type writeEntry struct {
	cf     string
	key    []byte
	value  []byte
	meta   UserMeta
	delete bool
}

// WriteBatch collects modifications to be applied to an engine atomically.
// It is engine-agnostic: the same batch can be written to a badger Engine or
// a MemEngine.
type WriteBatch struct {
	entries []writeEntry
	size    int
}

func (wb *WriteBatch) Len() int {
	return len(wb.entries)
}

// SetCF queues a plain put.
func (wb *WriteBatch) SetCF(cf string, key, value []byte) {
	wb.entries = append(wb.entries, writeEntry{cf: cf, key: key, value: value})
	wb.size += len(key) + len(value)
}

// SetWithMeta queues a put carrying version metadata. For the write family
// the commitTS in meta becomes the stored version.
func (wb *WriteBatch) SetWithMeta(cf string, key, value []byte, meta UserMeta) {
	wb.entries = append(wb.entries, writeEntry{cf: cf, key: key, value: value, meta: meta})
	wb.size += len(key) + len(value) + len(meta)
}

// DeleteCF queues a delete. Only unversioned families can be deleted by raw
// key; version GC on the write family is a compaction concern, not a batch
// operation.
func (wb *WriteBatch) DeleteCF(cf string, key []byte) {
	wb.entries = append(wb.entries, writeEntry{cf: cf, key: key, delete: true})
	wb.size += len(key)
}

func (wb *WriteBatch) Reset() {
	wb.entries = wb.entries[:0]
	wb.size = 0
}
