package stats

import (
	"sort"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// SelectWeakRooms returns the rooms with the highest DNF rate, worst first.
// Rooms nobody reached are skipped. top <= 0 returns every reached room.
func SelectWeakRooms(s *session.PracticeSession, top int) []model.RoomIndex {
	if s == nil {
		return nil
	}
	attempts := s.RoomAttemptCounts()
	dnfs := s.RoomDnfCounts()
	type candidate struct {
		room model.RoomIndex
		rate float64
	}
	candidates := make([]candidate, 0, len(attempts))
	for r, n := range attempts {
		if n == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			room: model.RoomIndex(r),
			rate: float64(dnfs[r]) / float64(n),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rate > candidates[j].rate
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.RoomIndex, top)
	for i := range out {
		out[i] = candidates[i].room
	}
	return out
}
