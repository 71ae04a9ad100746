package syncbar

// bucket is one unit of phase progress: a (destination, feature) pair during
// the snapshot phase, or a single feature during the apply phase. Later
// updates for the same identity fully replace the bucket, never accumulate.
type bucket struct {
	done  int
	total int
	final bool
}

// PhaseAggregate is the summed view across every bucket of one phase.
type PhaseAggregate struct {
	Done     int  `json:"done"`
	Total    int  `json:"total"`
	Started  bool `json:"started"`
	Finished bool `json:"finished"`
}

// Ratio returns completion as a value clamped to [0, 1].
func (a PhaseAggregate) Ratio() float64 {
	if a.Total <= 0 {
		return 0
	}
	r := float64(a.Done) / float64(a.Total)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// updateBucket replaces the named bucket in the map and returns the
// recomputed aggregate over all buckets. Per-bucket done is clamped to total
// before summing so a single malformed event cannot push a phase past 100%.
func updateBucket(buckets map[string]bucket, identity string, done, total int, final bool) PhaseAggregate {
	if done < 0 {
		done = 0
	}
	if total < 0 {
		total = 0
	}
	buckets[identity] = bucket{done: done, total: total, final: final}
	return aggregate(buckets)
}

// aggregate sums the current buckets of one phase.
//
// finished requires every bucket to be individually complete (flagged final
// or fully counted) on top of the phase totals lining up; a phase with no
// buckets is neither started nor finished.
func aggregate(buckets map[string]bucket) PhaseAggregate {
	var agg PhaseAggregate
	allComplete := true
	for _, b := range buckets {
		done := b.done
		if done > b.total {
			done = b.total
		}
		agg.Done += done
		agg.Total += b.total
		if !b.final && b.done < b.total {
			allComplete = false
		}
	}
	agg.Started = agg.Total > 0
	agg.Finished = allComplete && agg.Total > 0 && agg.Done >= agg.Total
	return agg
}

// snapIdentity keys snapshot buckets by destination and feature.
func snapIdentity(dst, feature string) string {
	return dst + "|" + feature
}
