package escape

import (
	"runtime"
	"sync"
)

// ForEachRow runs fn once for every row in [0, n) on at most workers goroutines.
// Rows are handed out one at a time so long rows near the set do not stall a
// fixed chunk. workers <= 0 means runtime.NumCPU().
func ForEachRow(n, workers int, fn func(row int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for row := 0; row < n; row++ {
			fn(row)
		}
		return
	}

	rows := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for row := range rows {
				fn(row)
			}
		}()
	}

	for row := 0; row < n; row++ {
		rows <- row
	}
	close(rows)
	wg.Wait()
}
