package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// stateCmd prints the running server's per-realm state.
func stateCmd(args []string) {
	adminCmd("state", http.MethodGet, "/admin/v1/state", 5*time.Second, args)
}

// saveCmd asks a running server to write its dirty regions now.
func saveCmd(args []string) {
	adminCmd("save", http.MethodPost, "/admin/v1/snapshot", 30*time.Second, args)
}

func adminCmd(name, method, path string, timeout time.Duration, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	body, err := callAdmin(&http.Client{Timeout: timeout}, method, *baseURL, path)
	if body != "" {
		fmt.Println(body)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, name+":", err)
		os.Exit(1)
	}
}

// callAdmin sends one request to a loopback admin endpoint and returns the
// response body. Non-2xx statuses come back as an error alongside the body.
func callAdmin(cl *http.Client, method, baseURL, path string) (string, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return string(b), fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return string(b), nil
}
