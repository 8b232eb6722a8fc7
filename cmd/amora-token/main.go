// Command amora-token mints a bearer token for a device bridge to present as
// Options.Password when the broker authenticates NATS connections by token.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"amora/internal/transport"
)

func main() {
	var (
		deviceID = flag.String("device", "", "device id to mint a token for")
		secret   = flag.String("secret", "", "HMAC secret shared with the broker's auth plugin")
		ttl      = flag.Duration("ttl", 24*time.Hour, "token validity duration")
	)
	flag.Parse()

	if *deviceID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: amora-token -device <id> -secret <hmac-secret> [-ttl 24h]")
		os.Exit(2)
	}

	mgr := transport.NewTokenManager(*secret, *ttl)
	token, err := mgr.Generate(*deviceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "amora-token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
