// Command respkv-cli is a minimal command-line client for a respkv
// server: one subcommand per RESP command, one request per invocation.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/respkv/client"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("respkv-cli", flag.ContinueOnError)
	host := fs.String("host", "127.0.0.1", "server host")
	port := fs.Int("port", 6379, "server port")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage()
		return 2
	}
	sub, rest := rest[0], rest[1:]

	addr := fmt.Sprintf("%s:%d", *host, *port)
	c, err := client.Dial(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	switch sub {
	case "get":
		return runGet(c, rest)
	case "set":
		return runSet(c, rest)
	case "publish":
		return runPublish(c, rest)
	case "ping":
		return runPing(c, rest)
	case "subscribe":
		return runSubscribe(c, rest)
	default:
		fmt.Fprintf(os.Stderr, "respkv-cli: unknown subcommand %q\n", sub)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: respkv-cli [-host H] [-port P] <subcommand> [args]

subcommands:
  get <key>
  set <key> <value> [EX seconds | PX milliseconds]
  publish <channel> <message>
  ping [message]
  subscribe <channel> [channel...]`)
}

func runGet(c *client.Client, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: get <key>")
		return 2
	}
	value, ok, err := c.Get(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Println("(nil)")
		return 0
	}
	fmt.Println(string(value))
	return 0
}

func runSet(c *client.Client, args []string) int {
	if len(args) != 2 && len(args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: set <key> <value> [EX seconds | PX milliseconds]")
		return 2
	}

	var ttl *time.Duration
	if len(args) == 4 {
		n, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid expiration %q: %v\n", args[3], err)
			return 2
		}
		var d time.Duration
		switch strings.ToUpper(args[2]) {
		case "EX":
			d = time.Duration(n) * time.Second
		case "PX":
			d = time.Duration(n) * time.Millisecond
		default:
			fmt.Fprintf(os.Stderr, "unknown expiration option %q (want EX or PX)\n", args[2])
			return 2
		}
		ttl = &d
	}

	if err := c.Set(args[0], []byte(args[1]), ttl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("OK")
	return 0
}

func runPublish(c *client.Client, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: publish <channel> <message>")
		return 2
	}
	n, err := c.Publish(args[0], []byte(args[1]))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(n)
	return 0
}

func runPing(c *client.Client, args []string) int {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: ping [message]")
		return 2
	}
	msg := ""
	if len(args) == 1 {
		msg = args[0]
	}
	reply, err := c.Ping(msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(reply)
	return 0
}

func runSubscribe(c *client.Client, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: subscribe <channel> [channel...]")
		return 2
	}
	sub, err := c.Subscribe(args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for {
		msg, err := sub.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("%s: %s\n", msg.Channel, msg.Payload)
	}
}
