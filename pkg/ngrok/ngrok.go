package ngrok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// DefaultAPI is the local agent api of ngrok.
const DefaultAPI = "http://127.0.0.1:4040"

var errNoTunnel = errors.New("ngrok: tunnel not found")

type tunnelsResponse struct {
	Tunnels []struct {
		Name      string `json:"name"`
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
		Config    struct {
			Addr string `json:"addr"`
		} `json:"config"`
	} `json:"tunnels"`
}

type Config struct {
	Bin string
	API string
	// Wait is how long to wait for the tunnel to be ready.
	Wait time.Duration
}

// Tunnel exposes a local http port and returns its public url. The tunnel is
// closed when ctx is done.
func Tunnel(ctx context.Context, cfg *Config, port string) (string, error) {
	bin := cfg.Bin
	if bin == "" {
		bin = "ngrok"
	}
	api := cfg.API
	if api == "" {
		api = DefaultAPI
	}
	wait := cfg.Wait
	if wait == 0 {
		wait = 30 * time.Second
	}

	cmd := exec.CommandContext(ctx, bin, "http", port, "--log", "stdout")
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("ngrok: couldn't start: %w", err)
	}
	exited := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			log.Printf("ngrok: process exited: %v\n", err)
		}
		exited <- err
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	deadline := time.After(wait)
	for {
		u, err := lookup(ctx, client, api, port)
		if err == nil {
			return u, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-exited:
			return "", fmt.Errorf("ngrok: process exited before the tunnel was ready: %v", err)
		case <-deadline:
			return "", fmt.Errorf("ngrok: tunnel not ready after %s: %w", wait, err)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// lookup returns the public url of the tunnel pointing to port.
func lookup(ctx context.Context, client *http.Client, api, port string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(api, "/")+"/api/tunnels", nil)
	if err != nil {
		return "", fmt.Errorf("ngrok: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ngrok: couldn't query agent: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ngrok: agent returned %s", resp.Status)
	}
	var tr tunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("ngrok: couldn't decode tunnels: %w", err)
	}
	for _, t := range tr.Tunnels {
		if tunnelPort(t.Config.Addr) != port {
			continue
		}
		if t.Proto != "https" && t.Proto != "http" {
			continue
		}
		return t.PublicURL, nil
	}
	return "", errNoTunnel
}

func tunnelPort(addr string) string {
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
