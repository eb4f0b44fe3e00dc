package playlists

import "slices"

// movePlan works out the position changes of a block move without
// touching the database.
type movePlan struct {
	sorted []int // positions to move, ascending
	count  int   // tracks in the playlist
	delta  int   // negative moves towards the start
}

func planMove(positions []int, count, delta int) movePlan {
	sorted := slices.Clone(positions)
	slices.Sort(sorted)
	return movePlan{sorted: sorted, count: count, delta: delta}
}

// valid reports whether every moved track stays inside the playlist.
func (m movePlan) valid() bool {
	if len(m.sorted) == 0 || m.delta == 0 {
		return false
	}
	if m.delta < 0 {
		return m.sorted[0]+m.delta >= 0
	}
	return m.sorted[len(m.sorted)-1]+m.delta < m.count
}

// moved returns positions shifted by delta, in the caller's order.
func (m movePlan) moved(positions []int) []int {
	out := make([]int, len(positions))
	for i, pos := range positions {
		out[i] = pos + m.delta
	}
	return out
}

// span is a half-open range of untouched positions to shift by delta.
type span struct {
	start int
	end   int
	delta int
}

// shifts lists the ranges of other tracks displaced by the move. Moving up
// pushes [newPos, oldPos) down by one; moving down pulls (oldPos, newPos]
// up by one, last moved track first.
func (m movePlan) shifts() []span {
	if !m.valid() {
		return nil
	}

	var spans []span
	if m.delta < 0 {
		for _, pos := range m.sorted {
			spans = append(spans, span{start: pos + m.delta, end: pos, delta: 1})
		}
		return spans
	}
	for i := len(m.sorted) - 1; i >= 0; i-- {
		pos := m.sorted[i]
		spans = append(spans, span{start: pos + 1, end: pos + m.delta + 1, delta: -1})
	}
	return spans
}
