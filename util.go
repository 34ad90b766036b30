package lthread

import "golang.org/x/exp/constraints"

// clampMin0 returns v if non-negative, else 0. Mailbox.isCrowded applies it
// to the local_msgs + shared_std.length count before comparing that count
// with max_msgs. Grounded on the generic-over-ordered-type idiom of
// catrate/ring.go's ringBuffer[E constraints.Ordered].
func clampMin0[T constraints.Integer](v T) T {
	if v < 0 {
		return 0
	}
	return v
}
