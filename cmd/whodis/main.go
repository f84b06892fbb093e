// WhoDis: CLI entry point.
//
// `whodis serve` runs the matchmaking and signaling server. `whodis join`
// connects to one, waits for a stranger with overlapping interests and
// opens a direct WebRTC session with them. Chat goes through stdin.
package main

var version = "dev"

func main() {
	Execute()
}
