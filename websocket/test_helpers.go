// Package websocket test_helpers.go
package websocket

// InitTest resets package globals between tests.
func InitTest() {
	for len(broadcast) > 0 {
		<-broadcast
	}
	connMu.Lock()
	connections = make(map[*Connection]bool)
	connMu.Unlock()
	defaultStateProvider = unconfiguredProvider{}
	defaultMessenger = &realMessenger{}
	allowedOrigins = nil
	SetCloudWatchClient(nil)
}
