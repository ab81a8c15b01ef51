package mediapipe

import "math/rand"

// HighActivityInterval finds the sceneDuration-second window of the clip with
// the highest concurrent-object density. Density is sampled per second; among
// the peak seconds one is picked at random and a window of sceneDuration is
// centered on it, clamped so it never exceeds the clip. A scene at least as
// long as the clip is the whole clip.
func HighActivityInterval(objects []TrackedObject, clipDuration, sceneDuration float64, randInt func(n int) int) (start, end float64) {
	if randInt == nil {
		randInt = rand.Intn
	}
	if sceneDuration >= clipDuration {
		return 0, clipDuration
	}

	seconds := int(clipDuration)
	if seconds < 1 {
		seconds = 1
	}
	density := make([]int, seconds)
	for _, o := range objects {
		for s := int(o.StartTime); s < seconds && float64(s) < o.EndTime; s++ {
			if s >= 0 {
				density[s]++
			}
		}
	}

	max := 0
	for _, d := range density {
		if d > max {
			max = d
		}
	}
	var peaks []int
	for s, d := range density {
		if d == max {
			peaks = append(peaks, s)
		}
	}

	peak := float64(peaks[randInt(len(peaks))])
	start = peak + 0.5 - sceneDuration/2
	if start < 0 {
		start = 0
	}
	if start+sceneDuration > clipDuration {
		start = clipDuration - sceneDuration
	}
	return start, start + sceneDuration
}
