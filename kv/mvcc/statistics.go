package mvcc

// CFStatistics counts the reads a resolver issued against one column family.
type CFStatistics struct {
	// Get is the number of point lookups.
	Get uint64
	// Seek is the number of iterator seeks or rewinds.
	Seek uint64
	// Next is the number of iterator steps.
	Next uint64
	// Processed is the number of entries decoded into results.
	Processed uint64
	// FlowBytes is the total size of values returned to callers.
	FlowBytes uint64
}

func (s *CFStatistics) Add(other CFStatistics) {
	s.Get += other.Get
	s.Seek += other.Seek
	s.Next += other.Next
	s.Processed += other.Processed
	s.FlowBytes += other.FlowBytes
}

// Statistics accumulates per-family read counters over the lifetime of one
// resolver. It is owned exclusively by that resolver; there is no reset
// beyond constructing a fresh one. Counting is best effort and never fails
// an operation.
type Statistics struct {
	Write CFStatistics
	Lock  CFStatistics
	Extra CFStatistics
}

func (s *Statistics) Add(other *Statistics) {
	s.Write.Add(other.Write)
	s.Lock.Add(other.Lock)
	s.Extra.Add(other.Extra)
}
