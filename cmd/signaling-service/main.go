// Package main is the entry point of signaling-service (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/abrarmughal4480/Webrtc-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
