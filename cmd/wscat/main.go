// Command wscat is an interactive WebSocket client: it connects to a
// ws:// or wss:// endpoint (optionally through a SOCKS5 proxy), sends
// stdin lines as text messages and prints every inbound frame.
package main

func main() {
	Execute()
}
