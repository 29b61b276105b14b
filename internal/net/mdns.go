package net

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_inkboard._tcp"

// DefaultDiscoverTimeout bounds how long Discover listens for replies.
const DefaultDiscoverTimeout = 2 * time.Second

// Advertise announces a store server on port to the local network. Stop
// advertising with Shutdown on the returned server.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"InkBoard store", "path=" + SocketPath}
	service, err := mdns.NewMDNSService(
		host,
		serviceType,
		"",
		"",
		port,
		[]net.IP{firstIPv4()},
		info,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[NET] Advertising %s as %s on port %d", serviceType, host, port)
	return server, nil
}

// Discover lists the host:port addresses of store servers that answer
// within timeout.
func Discover(ctx context.Context, timeout time.Duration) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan []string, 1)
	go func() {
		var addrs []string
		seen := make(map[string]bool)
		for e := range entries {
			addr, ok := entryAddr(e)
			if !ok || seen[addr] {
				continue
			}
			seen[addr] = true
			addrs = append(addrs, addr)
		}
		found <- addrs
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)

	addrs := <-found
	if err != nil {
		return addrs, fmt.Errorf("mDNS query: %w", err)
	}
	return addrs, ctx.Err()
}

func entryAddr(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port), true
}
