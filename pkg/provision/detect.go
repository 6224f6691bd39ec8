package provision

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Showmax/go-fqdn"
	"github.com/go-resty/resty/v2"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

const publicAddressService = "https://api.ipify.org"

// CheckPrivilege verifies the process runs as root. Everything the stages
// touch lives under /etc and /var/lib.
func CheckPrivilege() error {
	if os.Geteuid() != 0 {
		return ErrPrivilege
	}
	return nil
}

// CheckPlatform verifies the host is a Linux system with the package
// tooling the install steps rely on.
func CheckPlatform(r Runner) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("%w: %s", ErrPlatform, runtime.GOOS)
	}
	if _, err := r.LookPath("apt-get"); err != nil {
		return fmt.Errorf("%w: apt-based distribution required", ErrPlatform)
	}
	return nil
}

// DetectEgressInterface resolves the interface carrying the default route,
// which the NAT rules are bound to.
func DetectEgressInterface() (string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("list routes: %w", err)
	}

	for _, route := range routes {
		if route.Dst != nil {
			if ones, _ := route.Dst.Mask.Size(); ones != 0 {
				continue
			}
		}
		link, err := netlink.LinkByIndex(route.LinkIndex)
		if err != nil {
			return "", fmt.Errorf("resolve link %d: %w", route.LinkIndex, err)
		}
		return link.Attrs().Name, nil
	}

	return "", errors.New("no default route found")
}

// DetectEndpoint tries to find an address clients can reach this host on:
// the public address first, the host FQDN as fallback. Returns "" when
// neither is available.
func DetectEndpoint() string {
	client := resty.New().SetTimeout(10 * time.Second)
	response, err := client.R().Get(publicAddressService)
	if err == nil && response.IsSuccess() {
		if address := strings.TrimSpace(response.String()); net.ParseIP(address) != nil {
			return address
		}
	}

	if name := fqdn.Get(); name != "" && name != "unknown" {
		return name
	}
	return ""
}

// ResolveEndpoint fills in cfg.Endpoint: the supplied value wins, then
// detection, then an interactive prompt when stdin is a terminal. With all
// three exhausted the run fails with ErrMissingEndpoint.
func ResolveEndpoint(cfg *Config, detect func() string) error {
	if cfg.Endpoint != "" {
		return nil
	}

	if detect != nil {
		if address := detect(); address != "" {
			log.Infof("detected endpoint %s", address)
			cfg.Endpoint = address
			return nil
		}
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		address, err := promptEndpoint(os.Stdin, os.Stderr)
		if err == nil && address != "" {
			cfg.Endpoint = address
			return nil
		}
	}

	return ErrMissingEndpoint
}

func promptEndpoint(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Endpoint clients will connect to: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}
