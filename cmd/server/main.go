/*
main.go - Application entry point

PURPOSE:
  Starts the returns eligibility engine CLI. All commands live in cmd/.

COMMANDS:
  serve      Run the HTTP API (desk frontend, dashboard, CSV export)
  evaluate   Evaluate one request from flags and print the verdict
  policy     Print the effective policy

CONFIGURATION:
  --config file (YAML), RETURNS_* environment variables and flags. See
  config/config.go for the keys and precedence.

EXIT CODES:
  0  success
  1  configuration error, invalid input, or server failure

SEE ALSO:
  - cmd/serve.go: Server startup and graceful shutdown
  - api/server.go: Router configuration
*/
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/warp/returns-engine/cmd/server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
