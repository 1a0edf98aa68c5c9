package config

import (
	"fmt"
	"net"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// ResolveListenAddr accepts "host:port" or a TCP multiaddr such as
// /ip4/127.0.0.1/tcp/8787 and returns a host:port for net/http.
func ResolveListenAddr(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultListenAddr, nil
	}
	if strings.HasPrefix(raw, "/") {
		m, err := ma.NewMultiaddr(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidListenAddr, err)
		}
		network, addr, err := manet.DialArgs(m)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidListenAddr, err)
		}
		switch network {
		case "tcp", "tcp4", "tcp6":
			return addr, nil
		default:
			return "", fmt.Errorf("%w: unsupported network %q", ErrInvalidListenAddr, network)
		}
	}
	if _, _, err := net.SplitHostPort(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidListenAddr, err)
	}
	return raw, nil
}
