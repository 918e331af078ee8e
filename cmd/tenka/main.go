package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ternarybob/tenka/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	// Local .env files override nothing already exported in the environment
	godotenv.Load()

	// A .version file next to the binary overrides the compiled-in version
	common.LoadVersionFromFile()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		runServe(args)
	case "fetch":
		runFetch(args)
	case "version":
		fmt.Printf("Tenka version %s\n", common.GetFullVersion())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: tenka [command] [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve    Start the HTTP API server (default)")
	fmt.Fprintln(os.Stderr, "  fetch    Fetch the latest annual reports and exit")
	fmt.Fprintln(os.Stderr, "  version  Print version information")
}

// loadConfig resolves config files (explicit flags, then auto-discovery) and
// returns the merged configuration.
func loadConfig(configFiles configPaths) (*common.Config, error) {
	if len(configFiles) == 0 {
		if _, err := os.Stat("tenka.toml"); err == nil {
			configFiles = append(configFiles, "tenka.toml")
		} else if _, err := os.Stat("deployments/local/tenka.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/tenka.toml")
		}
	}
	return common.LoadFromFiles(configFiles...)
}
