package netplan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNetworkSpec is returned when the tunnel CIDR cannot be parsed.
	ErrInvalidNetworkSpec = errors.New("invalid network spec")
	// ErrInsufficientAddressSpace is returned when the base address leaves no
	// room for the server and client host addresses.
	ErrInsufficientAddressSpace = errors.New("insufficient address space")
)

// maxBaseOctet keeps headroom for the +1 server and +2 client allocation and
// for additional clients added later.
const maxBaseOctet = 252

// maxPrefixLen is the longest prefix that still leaves at least three usable
// host addresses: the server, the first client and room for one more.
const maxPrefixLen = 29

// NetworkPlan holds the tunnel addressing derived from the CIDR input. The
// server takes the first host address after the base, the first client the
// second one.
type NetworkPlan struct {
	BaseAddress        string
	PrefixLen          int
	ServerAddress      string
	ClientAddress      string
	ClientAllowedRange string
}

// ServerIP returns the server tunnel address without its prefix.
func (p *NetworkPlan) ServerIP() string {
	return strings.SplitN(p.ServerAddress, "/", 2)[0]
}

// Subnet returns the planned network in CIDR notation.
func (p *NetworkPlan) Subnet() string {
	return fmt.Sprintf("%s/%d", p.BaseAddress, p.PrefixLen)
}

// Plan derives the tunnel addressing from a "a.b.c.d/n" CIDR string. It is a
// pure function: no I/O, same input always yields the same plan.
func Plan(cidr string) (*NetworkPlan, error) {
	base, prefixLen, err := parseCIDR(cidr)
	if err != nil {
		return nil, err
	}

	if prefixLen > maxPrefixLen {
		return nil, fmt.Errorf("%w: prefix /%d leaves no room for host addresses", ErrInsufficientAddressSpace, prefixLen)
	}
	if base[3] > maxBaseOctet {
		return nil, fmt.Errorf("%w: base octet %d leaves no room for host addresses", ErrInsufficientAddressSpace, base[3])
	}
	if base[3]+2 > lastHostOctet(base, prefixLen) {
		return nil, fmt.Errorf("%w: client address %s falls outside %s/%d", ErrInsufficientAddressSpace, hostAddress(base, 2), joinOctets(base), prefixLen)
	}

	plan := &NetworkPlan{
		BaseAddress:        joinOctets(base),
		PrefixLen:          prefixLen,
		ServerAddress:      fmt.Sprintf("%s/%d", hostAddress(base, 1), prefixLen),
		ClientAddress:      fmt.Sprintf("%s/%d", hostAddress(base, 2), prefixLen),
		ClientAllowedRange: fmt.Sprintf("%s/32", hostAddress(base, 2)),
	}

	return plan, nil
}

// ClientAt returns the tunnel address and /32 allowed range for the client at
// the given position, position 0 being the first client (base+2).
func (p *NetworkPlan) ClientAt(position int) (address, allowedRange string, err error) {
	base, _, err := parseCIDR(p.Subnet())
	if err != nil {
		return "", "", err
	}

	offset := 2 + position
	if position < 0 || base[3]+offset > lastHostOctet(base, p.PrefixLen) {
		return "", "", fmt.Errorf("%w: no address left for client %d", ErrInsufficientAddressSpace, position+1)
	}

	ip := hostAddress(base, offset)
	return fmt.Sprintf("%s/%d", ip, p.PrefixLen), ip + "/32", nil
}

func parseCIDR(cidr string) ([4]int, int, error) {
	var base [4]int

	parts := strings.SplitN(cidr, "/", 2)
	if len(parts) != 2 {
		return base, 0, fmt.Errorf("%w: %q is not in address/prefix form", ErrInvalidNetworkSpec, cidr)
	}

	octets := strings.Split(parts[0], ".")
	if len(octets) != 4 {
		return base, 0, fmt.Errorf("%w: address %q must have four octets", ErrInvalidNetworkSpec, parts[0])
	}

	for i, octet := range octets {
		value, err := strconv.Atoi(octet)
		if err != nil || value < 0 || value > 255 {
			return base, 0, fmt.Errorf("%w: bad octet %q in %q", ErrInvalidNetworkSpec, octet, parts[0])
		}
		base[i] = value
	}

	prefixLen, err := strconv.Atoi(parts[1])
	if err != nil || prefixLen < 0 || prefixLen > 32 {
		return base, 0, fmt.Errorf("%w: bad prefix length %q", ErrInvalidNetworkSpec, parts[1])
	}

	return base, prefixLen, nil
}

// lastHostOctet returns the highest usable last octet of the block that
// contains base, keeping the broadcast address out of play.
func lastHostOctet(base [4]int, prefixLen int) int {
	if prefixLen < 24 {
		return 254
	}
	blockSize := 1 << (32 - prefixLen)
	start := base[3] &^ (blockSize - 1)
	return start + blockSize - 2
}

func hostAddress(base [4]int, offset int) string {
	host := base
	host[3] += offset
	return joinOctets(host)
}

func joinOctets(octets [4]int) string {
	return fmt.Sprintf("%d.%d.%d.%d", octets[0], octets[1], octets[2], octets[3])
}
