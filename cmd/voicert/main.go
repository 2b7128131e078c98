// Command voicert is a push-to-talk voice assistant on the OpenAI realtime
// API.
//
// Usage:
//
//	voicert [flags] <command>
//
// Commands:
//
//	chat       - record, transcribe and answer in a loop
//	say        - send one text turn and play the answer
//	calibrate  - measure the background noise level
//	devices    - list input and output devices
//
// Configuration is read from config.json, .env and VOICERT_* variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
