package stats

import "math"

// ConsistencyInput holds the segment-level quantities the composite score needs.
type ConsistencyInput struct {
	Median    float64
	Min       float64
	MAD       float64
	ResetRate float64
	Q1        float64
	Q3        float64
}

// ConsistencyScore combines spread, floor proximity and reset rate into 0..1.
func ConsistencyScore(in ConsistencyInput) float64 {
	var stability float64
	floorProximity := 1.0
	if in.Median > 0 {
		stability = 25*math.Max(0, 1-in.MAD/in.Median) + 25*math.Max(0, 1-(in.Q3-in.Q1)/in.Median)
		floorProximity = math.Max(0, 1-2*(in.Median-in.Min)/in.Median)
	}
	reliability := 1 - clamp(in.ResetRate, 0, 1)
	reliability *= reliability
	return clamp((stability+50*floorProximity)*reliability/100, 0, 1)
}
