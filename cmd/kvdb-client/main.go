// Command kvdb-client issues a single set, get, or remove against a
// running kvdb-server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"kvdb/rpc"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvdb-client [-server addr] set <key> <value>")
	fmt.Fprintln(os.Stderr, "       kvdb-client [-server addr] get <key>")
	fmt.Fprintln(os.Stderr, "       kvdb-client [-server addr] remove <key>")
}

func main() {
	server := flag.String("server", "127.0.0.1:5051", "server address")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	key, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid key %q: %v\n", args[1], err)
		os.Exit(1)
	}

	client, err := rpc.Dial(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to %s: %v\n", *server, err)
		os.Exit(1)
	}
	defer client.Close()

	switch args[0] {
	case "set":
		if len(args) < 3 {
			usage()
			os.Exit(1)
		}
		prev, had, err := client.Set(key, []byte(args[2]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set key %d: %v\n", key, err)
			os.Exit(1)
		}
		if had {
			fmt.Printf("successfully updated key %d. old value: %s\n", key, prev)
		} else {
			fmt.Printf("successfully set key %d\n", key)
		}
	case "get":
		value, ok, err := client.Get(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error retrieving key %d: %v\n", key, err)
			os.Exit(1)
		}
		if ok {
			fmt.Printf("value for key %d: %s\n", key, value)
		} else {
			fmt.Printf("key not found: %d\n", key)
		}
	case "remove":
		prev, had, err := client.Remove(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove key %d: %v\n", key, err)
			os.Exit(1)
		}
		if had {
			fmt.Printf("successfully removed key %d. old value was: %s\n", key, prev)
		} else {
			fmt.Printf("key not found: %d\n", key)
		}
	default:
		usage()
		os.Exit(1)
	}
}
