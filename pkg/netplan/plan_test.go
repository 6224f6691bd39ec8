package netplan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	testCases := []struct {
		cidr          string
		server        string
		client        string
		clientAllowed string
	}{
		{
			cidr:          "10.8.0.0/24",
			server:        "10.8.0.1/24",
			client:        "10.8.0.2/24",
			clientAllowed: "10.8.0.2/32",
		},
		{
			cidr:          "192.168.77.0/26",
			server:        "192.168.77.1/26",
			client:        "192.168.77.2/26",
			clientAllowed: "192.168.77.2/32",
		},
		{
			cidr:          "10.6.0.252/24",
			server:        "10.6.0.253/24",
			client:        "10.6.0.254/24",
			clientAllowed: "10.6.0.254/32",
		},
	}

	for _, tC := range testCases {
		t.Run(tC.cidr, func(t *testing.T) {
			plan, err := Plan(tC.cidr)
			if err != nil {
				t.Fatalf("unexpected error planning %q: %v", tC.cidr, err)
			}

			if plan.ServerAddress != tC.server {
				t.Errorf("server address\nexpected: %s\ngot: %s", tC.server, plan.ServerAddress)
			}
			if plan.ClientAddress != tC.client {
				t.Errorf("client address\nexpected: %s\ngot: %s", tC.client, plan.ClientAddress)
			}
			if plan.ClientAllowedRange != tC.clientAllowed {
				t.Errorf("client allowed range\nexpected: %s\ngot: %s", tC.clientAllowed, plan.ClientAllowedRange)
			}
			if plan.ServerAddress == plan.ClientAddress {
				t.Errorf("server and client addresses must differ, both are %s", plan.ServerAddress)
			}
		})
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	first, err := Plan("10.8.0.0/24")
	require.NoError(t, err)
	second, err := Plan("10.8.0.0/24")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPlanInvalidNetworkSpec(t *testing.T) {
	testCases := []struct{ cidr string }{
		{cidr: ""},
		{cidr: "10.8.0.0"},
		{cidr: "10.8.0/24"},
		{cidr: "10.8.0.0.0/24"},
		{cidr: "10.8.x.0/24"},
		{cidr: "10.8.0.256/24"},
		{cidr: "10.8.0.0/33"},
		{cidr: "10.8.0.0/abc"},
	}

	for _, tC := range testCases {
		t.Run(fmt.Sprintf("cidr %q", tC.cidr), func(t *testing.T) {
			_, err := Plan(tC.cidr)
			if !errors.Is(err, ErrInvalidNetworkSpec) {
				t.Errorf("expected ErrInvalidNetworkSpec for %q, got %v", tC.cidr, err)
			}
		})
	}
}

func TestPlanInsufficientAddressSpace(t *testing.T) {
	for _, cidr := range []string{
		"10.8.0.253/24", "10.8.0.254/24", "10.8.0.255/24",
		// prefixes without room for three usable host addresses
		"10.8.0.0/31", "10.8.0.0/30", "10.8.0.0/32",
		// base too close to the end of its block
		"10.8.0.6/29", "10.8.0.62/26",
	} {
		_, err := Plan(cidr)
		if !errors.Is(err, ErrInsufficientAddressSpace) {
			t.Errorf("expected ErrInsufficientAddressSpace for %q, got %v", cidr, err)
		}
	}
}

func TestPlanKeepsHostAddressesInsideSubnet(t *testing.T) {
	// the smallest accepted prefix still fits server and client
	plan, err := Plan("10.8.0.0/29")
	require.NoError(t, err)
	require.Equal(t, "10.8.0.1/29", plan.ServerAddress)
	require.Equal(t, "10.8.0.2/29", plan.ClientAddress)
}

func TestClientAt(t *testing.T) {
	plan, err := Plan("10.8.0.0/24")
	require.NoError(t, err)

	address, allowed, err := plan.ClientAt(0)
	require.NoError(t, err)
	require.Equal(t, "10.8.0.2/24", address)
	require.Equal(t, "10.8.0.2/32", allowed)

	address, allowed, err = plan.ClientAt(3)
	require.NoError(t, err)
	require.Equal(t, "10.8.0.5/24", address)
	require.Equal(t, "10.8.0.5/32", allowed)

	// .254 is the last usable host of the /24, .255 is broadcast
	address, _, err = plan.ClientAt(252)
	require.NoError(t, err)
	require.Equal(t, "10.8.0.254/24", address)

	_, _, err = plan.ClientAt(253)
	require.ErrorIs(t, err, ErrInsufficientAddressSpace)

	_, _, err = plan.ClientAt(254)
	require.ErrorIs(t, err, ErrInsufficientAddressSpace)
}

func TestClientAtStopsBeforeBroadcast(t *testing.T) {
	plan, err := Plan("10.8.0.0/29")
	require.NoError(t, err)

	address, allowed, err := plan.ClientAt(4)
	require.NoError(t, err)
	require.Equal(t, "10.8.0.6/29", address)
	require.Equal(t, "10.8.0.6/32", allowed)

	_, _, err = plan.ClientAt(5)
	require.ErrorIs(t, err, ErrInsufficientAddressSpace)
}
