package scheduler

// Partition splits items into exactly workers contiguous chunks whose sizes
// differ by at most one; the first len(items)%workers chunks carry the extra
// item. Chunks may be empty when there are fewer items than workers.
func Partition[T any](items []T, workers int) [][]T {
	if workers < 1 {
		workers = 1
	}

	size := len(items) / workers
	extra := len(items) % workers

	chunks := make([][]T, workers)

	start := 0
	for i := range chunks {
		end := start + size
		if i < extra {
			end++
		}

		chunks[i] = items[start:end:end]
		start = end
	}

	return chunks
}
