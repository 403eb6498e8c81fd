package main

import (
	"context"
	"flag"
	"time"

	"coduel/internal/cli/command"
	httpclient "coduel/internal/cli/http"
	"coduel/internal/cli/repl"
)

func main() {
	baseURL := flag.String("base", "http://127.0.0.1:8080", "API base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP timeout (e.g. 10s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	client := httpclient.New(*baseURL, *timeout)
	session := repl.New(client, command.Registry(), *pretty)
	session.Run(context.Background())
}
