package sandbox

import "sync"

var shared struct {
	once sync.Once
	host *Host
}

// Shared returns the process-wide host with default preludes. Every
// session in the process attaches to it.
func Shared() *Host {
	shared.once.Do(func() {
		shared.host = New()
	})
	return shared.host
}
