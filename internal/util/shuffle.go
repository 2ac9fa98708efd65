package util

import "math/rand"

// ShuffleSlice permutes s in place (Fisher-Yates via rand.Shuffle). Used for
// question and option randomization at serving time; each call produces a
// fresh order, nothing security-sensitive depends on it.
func ShuffleSlice[T any](s []T) {
	rand.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
