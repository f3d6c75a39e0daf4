package engine

import "time"

// debounceLoop waits for merges and rebuilds once the store has been quiet
// for the debounce window. A timer armed before a clear still fires; rebuild
// drops it because the cleared version is already built.
func (e *Engine) debounceLoop() {
	defer e.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	stop := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-e.done:
			stop()
			return
		case <-e.kick:
			if timer == nil {
				timer = time.NewTimer(e.debounce)
				timerC = timer.C
			} else {
				timer.Reset(e.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			e.rebuild()
		}
	}
}
