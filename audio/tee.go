package audio

import "log"

// Tee broadcasts every chunk read from input to all outputs, each receiving
// its own copy. A single goroutine reads input; sends block, so the slowest
// output paces the rest. Outputs are closed when input is closed. Sending to
// an output that was already closed is logged and skipped.
func Tee(input <-chan []float32, outputs ...chan<- []float32) {
	go func() {
		for data := range input {
			for _, out := range outputs {
				dataCopy := make([]float32, len(data))
				copy(dataCopy, data)
				func(ch chan<- []float32, data []float32) {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("Warning: Cannot send to output channel (closed): %v", r)
						}
					}()
					ch <- data
				}(out, dataCopy)
			}
		}

		for _, out := range outputs {
			func(ch chan<- []float32) {
				defer func() {
					recover() // already closed
				}()
				close(ch)
			}(out)
		}
	}()
}
