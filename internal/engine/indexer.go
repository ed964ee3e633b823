package engine

import "sort"

// candidateIndexer is the mutable bucketed index keyed by (playlist,
// skill-bucket). A search is inserted under every
// playlist in its eligibility set, since any of those playlists could be
// the one a future match settles on. Bucket boundaries are supplied by
// the caller at insert/remove/candidates time rather than cached on the
// index, so an evolver-driven rebucketing only requires the engine to
// rebuild the index (see evolver.go's rebuildIndexer), not to track
// boundary versions per entry.
type candidateIndexer struct {
	// buckets[playlist][bucket] is a list of search handles, kept sorted
	// by handle index ascending (the "ascending identity" tie-break).
	buckets map[int]map[int][]Handle
}

func newCandidateIndexer() *candidateIndexer {
	return &candidateIndexer{buckets: make(map[int]map[int][]Handle)}
}

func (idx *candidateIndexer) insert(h Handle, s *Search, boundaries []float64) {
	bucket := bucketFromSkill(s.MeanSkill, boundaries)
	for _, pl := range s.EligiblePlaylists {
		idx.insertOne(pl, bucket, h)
	}
}

func (idx *candidateIndexer) insertOne(playlist, bucket int, h Handle) {
	perPlaylist, ok := idx.buckets[playlist]
	if !ok {
		perPlaylist = make(map[int][]Handle)
		idx.buckets[playlist] = perPlaylist
	}
	list := perPlaylist[bucket]
	pos := sort.Search(len(list), func(i int) bool { return list[i].Index >= h.Index })
	list = append(list, Handle{})
	copy(list[pos+1:], list[pos:])
	list[pos] = h
	perPlaylist[bucket] = list
}

func (idx *candidateIndexer) remove(h Handle, s *Search, boundaries []float64) {
	bucket := bucketFromSkill(s.MeanSkill, boundaries)
	for _, pl := range s.EligiblePlaylists {
		idx.removeOne(pl, bucket, h)
	}
}

func (idx *candidateIndexer) removeOne(playlist, bucket int, h Handle) {
	perPlaylist, ok := idx.buckets[playlist]
	if !ok {
		return
	}
	list := perPlaylist[bucket]
	for i, x := range list {
		if x == h {
			perPlaylist[bucket] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (idx *candidateIndexer) clear() {
	idx.buckets = make(map[int]map[int][]Handle)
}

// candidates yields up to K search handles for the seed's playlist
// preferences, scanning buckets [b-w, b+w] with w growing with the
// seed's wait time until K candidates are accumulated or all buckets are
// exhausted. Candidates are returned in ascending bucket-distance,
// ascending-identity order; the match former re-sorts by composite
// distance itself.
func (idx *candidateIndexer) candidates(seedHandle Handle, seed *Search, boundaries []float64, numBuckets, k int, waitGrowthTicks float64) []Handle {
	seedBucket := bucketFromSkill(seed.MeanSkill, boundaries)
	w := 1 + int(seed.Wait/waitGrowthTicks)

	seen := make(map[Handle]bool)
	var out []Handle

	for radius := 0; radius <= w && len(out) < k; radius++ {
		lo, hi := seedBucket-radius, seedBucket+radius
		for b := lo; b <= hi; b++ {
			if b < 0 || b >= numBuckets {
				continue
			}
			if radius > 0 && b != lo && b != hi {
				continue // interior buckets already scanned at smaller radius
			}
			for _, pl := range seed.EligiblePlaylists {
				for _, h := range idx.buckets[pl][b] {
					if h == seedHandle || seen[h] {
						continue
					}
					seen[h] = true
					out = append(out, h)
				}
			}
		}
	}

	if len(out) > k {
		out = out[:k]
	}
	return out
}

// bucketFromSkill maps a skill value to an equal-frequency bucket using
// the boundary thresholds computed by the most recent percentile
// recomputation (see evolver.go). boundaries holds len(boundaries)
// ascending cut points for len(boundaries)+1 buckets.
func bucketFromSkill(skill float64, boundaries []float64) int {
	return sort.SearchFloat64s(boundaries, skill)
}
