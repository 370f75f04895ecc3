// Command settlerelay runs the game-round settlement relay.
//
// Usage:
//
//	settlerelay                 # serve on $PORT (default 3000)
//	settlerelay serve -c relay.yaml
//	settlerelay sign --wallet w1 --amount 100 --round r1
//
// Required environment variables:
//
//	SERVER_API_KEY, CURRENCY_ID, HMAC_SECRET
package main

import (
	"os"

	"github.com/susu3304/settlerelay/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
