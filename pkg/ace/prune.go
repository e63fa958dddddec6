package ace

// sweepLocked removes bullets whose success rate has fallen below
// minRatio after at least minUses evaluations. Unused bullets are never
// swept. The caller must hold the write lock.
func (p *Playbook) sweepLocked(minRatio float64, minUses int) []BulletID {
	if minUses < 1 {
		minUses = 1
	}

	var swept []BulletID
	kept := p.bullets[:0]
	for _, b := range p.bullets {
		if b.TotalUses() >= minUses && b.SuccessRate() < minRatio {
			swept = append(swept, b.ID)
			delete(p.byID, b.ID)
		} else {
			kept = append(kept, b)
		}
	}
	p.bullets = kept
	for i := range p.bullets {
		p.byID[p.bullets[i].ID] = i
	}
	return swept
}

// pruneLocked evicts bullets one at a time until the playbook fits its
// capacity. The victim is the lowest-scoring bullet; ties prefer evicting
// the least recently used, then the most recently inserted. The caller
// must hold the write lock.
func (p *Playbook) pruneLocked() []BulletID {
	var pruned []BulletID

	for len(p.bullets) > p.maxSize {
		victim := 0
		for i := 1; i < len(p.bullets); i++ {
			if p.evictBefore(i, victim) {
				victim = i
			}
		}
		pruned = append(pruned, p.bullets[victim].ID)
		p.removeAtLocked(victim)
	}

	return pruned
}

// evictBefore reports whether the bullet at index i is a better eviction
// candidate than the one at index j.
func (p *Playbook) evictBefore(i, j int) bool {
	bi, bj := &p.bullets[i], &p.bullets[j]

	if bi.Score() != bj.Score() {
		return bi.Score() < bj.Score()
	}
	if bi.LastUsedEpoch != bj.LastUsedEpoch {
		return bi.LastUsedEpoch < bj.LastUsedEpoch
	}
	// Same score and recency: evict the later insertion. Index order is
	// insertion order, so the later of i and j loses.
	return i > j
}
