package ace

// dedupeLocked merges near-duplicate bullets until no pair of contents
// reaches the similarity threshold. The caller must hold the write lock.
//
// Merge rules: the higher-scoring bullet survives (lower ID on a tie),
// counters are summed, tags are unioned, CreatedEpoch takes the earlier
// value and LastUsedEpoch the later. The loser's ID is retired for good.
func (p *Playbook) dedupeLocked(threshold float64) []Merge {
	var merges []Merge

	// Each merge removes one bullet, so rescanning from the top bounds
	// the loop at len(bullets) passes.
	for {
		merged := false

		tokens := make([]map[string]bool, len(p.bullets))
		for i := range p.bullets {
			tokens[i] = tokenize(p.bullets[i].Content)
		}

	scan:
		for i := 0; i < len(p.bullets); i++ {
			for j := i + 1; j < len(p.bullets); j++ {
				if jaccardSimilarity(tokens[i], tokens[j]) < threshold {
					continue
				}

				// IDs are monotonic with insertion, so on a score tie the
				// earlier bullet has the lower ID and survives.
				si, sj := i, j
				if p.bullets[j].Score() > p.bullets[i].Score() {
					si, sj = j, i
				}

				merges = append(merges, Merge{
					Survivor: p.bullets[si].ID,
					Retired:  p.bullets[sj].ID,
				})
				p.mergeLocked(si, sj)
				merged = true
				break scan
			}
		}

		if !merged {
			return merges
		}
	}
}

// mergeLocked folds the bullet at index loser into the one at index
// survivor and removes the loser. Indices are invalid afterwards; the
// caller rescans. The caller must hold the write lock.
func (p *Playbook) mergeLocked(survivor, loser int) {
	s := &p.bullets[survivor]
	l := p.bullets[loser]

	s.Helpful += l.Helpful
	s.Harmful += l.Harmful
	s.Tags = normalizeTags(append(s.Tags, l.Tags...))

	if l.CreatedEpoch < s.CreatedEpoch {
		s.CreatedEpoch = l.CreatedEpoch
	}
	if l.LastUsedEpoch > s.LastUsedEpoch {
		s.LastUsedEpoch = l.LastUsedEpoch
	}

	p.removeAtLocked(loser)
}
