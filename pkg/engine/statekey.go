package engine

import "slices"

// StateKey identifies an estimator input: the rules, the observed history,
// the trial count and the seed. Keys compare by their full encoding; the
// hash only selects a cache slot.
type StateKey struct {
	words []uint32
	hash  uint32
}

// MakeStateKey encodes everything EstimateHandsDistrib depends on.
func MakeStateKey(rules *Rules, state *GameState, trials int, seed uint64) StateKey {
	w := make([]uint32, 0, 16+state.Table.CardCount()*(len(state.PastRounds)+1))
	w = append(w,
		uint32(rules.MinCardIdx), uint32(rules.MaxCardIdx), uint32(rules.MaxRowLen),
		uint32(rules.HandLen), uint32(rules.RowCount),
		uint32(state.PlayerCount), uint32(trials), uint32(seed), uint32(seed>>32),
	)

	w = appendCards(w, state.MyHand)
	w = appendTable(w, &state.Table)
	w = append(w, uint32(len(state.PastRounds)))
	for i := range state.PastRounds {
		w = appendTable(w, &state.PastRounds[i].Table)
		w = appendCards(w, state.PastRounds[i].Actions)
	}
	return StateKey{words: w, hash: murmurHash(w)}
}

// Hash returns the 32-bit digest of the key.
func (k StateKey) Hash() uint32 { return k.hash }

// Equal reports whether two keys encode the same input.
func (k StateKey) Equal(o StateKey) bool {
	return k.hash == o.hash && slices.Equal(k.words, o.words)
}

func (k StateKey) valid() bool { return k.words != nil }

func appendCards(w []uint32, cards []Card) []uint32 {
	w = append(w, uint32(len(cards)))
	for _, c := range cards {
		w = append(w, uint32(c.Idx()))
	}
	return w
}

func appendTable(w []uint32, t *Table) []uint32 {
	w = append(w, uint32(t.RowCount()))
	for i := 0; i < t.RowCount(); i++ {
		w = appendCards(w, t.Row(i))
	}
	return w
}

// murmurHash is MurmurHash3 (x86, 32-bit) over a word stream.
func murmurHash(data []uint32) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h := uint32(0)
	for _, k := range data {
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	// Finalization
	h ^= uint32(len(data) * 4)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
