package stats

import (
	"sort"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// RoomTimeLoss is the gap between a room's median and best time.
type RoomTimeLoss struct {
	Room model.RoomIndex
	Loss model.TimeTicks
}

// TopRoomsByTimeLoss returns the n rooms where the median run loses most against the best run.
func TopRoomsByTimeLoss(s *session.PracticeSession, n int) []RoomTimeLoss {
	if s == nil || n <= 0 {
		return nil
	}
	items := make([]RoomTimeLoss, 0, s.RoomCount())
	for r := 0; r < s.RoomCount(); r++ {
		room := model.RoomIndex(r)
		sorted := Sorted(Floats(s.RoomTimes(room)))
		if len(sorted) == 0 {
			continue
		}
		items = append(items, RoomTimeLoss{
			Room: room,
			Loss: model.TicksFromFloat(Median(sorted) - sorted[0]),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Loss > items[j].Loss
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
