package signalwatcher

import (
	"os"
	"os/signal"
)

// Watch calls callback exactly once, the first time an interrupt is received.
func Watch(callback func(Signal)) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	go func() {
		<-signals
		callback(INT)
	}()
}
