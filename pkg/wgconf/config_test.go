package wgconf

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/xelyr/privacy-gateway/pkg/netplan"
)

func mustPlan(t *testing.T, cidr string) *netplan.NetworkPlan {
	t.Helper()
	plan, err := netplan.Plan(cidr)
	if err != nil {
		t.Fatalf("plan %q: %v", cidr, err)
	}
	return plan
}

func TestRenderServerConf(t *testing.T) {
	plan := mustPlan(t, "10.8.0.0/24")
	peers := []Peer{
		{Name: "laptop", Address: "10.8.0.2/24", AllowedRange: "10.8.0.2/32", PublicKey: "laptoppub", PresharedKey: "laptoppsk"},
		{Name: "phone", Address: "10.8.0.3/24", AllowedRange: "10.8.0.3/32", PublicKey: "phonepub", PresharedKey: "phonepsk"},
	}

	expected := `[Interface]
Address = 10.8.0.1/24
ListenPort = 51820
PrivateKey = serverpriv
PostUp = iptables -t nat -A POSTROUTING -s 10.8.0.0/24 -o eth0 -j MASQUERADE; iptables -A FORWARD -i wg0 -o eth0 -j ACCEPT; iptables -A FORWARD -i eth0 -o wg0 -m state --state RELATED,ESTABLISHED -j ACCEPT
PostDown = iptables -t nat -D POSTROUTING -s 10.8.0.0/24 -o eth0 -j MASQUERADE; iptables -D FORWARD -i wg0 -o eth0 -j ACCEPT; iptables -D FORWARD -i eth0 -o wg0 -m state --state RELATED,ESTABLISHED -j ACCEPT

# laptop
[Peer]
PublicKey = laptoppub
PresharedKey = laptoppsk
AllowedIPs = 10.8.0.2/32

# phone
[Peer]
PublicKey = phonepub
PresharedKey = phonepsk
AllowedIPs = 10.8.0.3/32
`

	generated := RenderServerConf(plan, "serverpriv", peers, 51820, "wg0", "eth0")

	if generated != expected {
		t.Errorf("server config was not rendered as expected:\n%s", diff.LineDiff(expected, generated))
	}
}

func TestRenderServerConfPeersAreSingleHostScoped(t *testing.T) {
	plan := mustPlan(t, "10.8.0.0/24")

	var peers []Peer
	for i := 0; i < 5; i++ {
		address, allowed, err := plan.ClientAt(i)
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, Peer{Name: "c", Address: address, AllowedRange: allowed, PublicKey: "pub", PresharedKey: "psk"})
	}

	generated := RenderServerConf(plan, "priv", peers, 51820, "wg0", "eth0")

	for _, line := range strings.Split(generated, "\n") {
		if !strings.HasPrefix(line, "AllowedIPs = ") {
			continue
		}
		if !strings.HasSuffix(line, "/32") {
			t.Errorf("peer allowed range must be a single host, got %q", line)
		}
		if strings.Contains(line, "/24") {
			t.Errorf("peer allowed range must never be the whole subnet, got %q", line)
		}
	}
}

func TestRenderServerConfPostDownMirrorsPostUp(t *testing.T) {
	plan := mustPlan(t, "10.8.0.0/24")
	generated := RenderServerConf(plan, "priv", nil, 51820, "wg0", "ens3")

	var up, down string
	for _, line := range strings.Split(generated, "\n") {
		if strings.HasPrefix(line, "PostUp = ") {
			up = strings.TrimPrefix(line, "PostUp = ")
		}
		if strings.HasPrefix(line, "PostDown = ") {
			down = strings.TrimPrefix(line, "PostDown = ")
		}
	}

	if up == "" || down == "" {
		t.Fatalf("missing PostUp or PostDown in:\n%s", generated)
	}
	if strings.Replace(up, "-A", "-D", -1) != down {
		t.Errorf("PostDown does not mirror PostUp:\nup:   %s\ndown: %s", up, down)
	}
}

func TestRenderClientConf(t *testing.T) {
	peer := Peer{
		Name:         "laptop",
		Address:      "10.8.0.2/24",
		AllowedRange: "10.8.0.2/32",
		PublicKey:    "laptoppub",
		PresharedKey: "laptoppsk",
	}

	expected := `[Interface]
PrivateKey = laptoppriv
Address = 10.8.0.2/24
DNS = 10.8.0.1

[Peer]
PublicKey = serverpub
PresharedKey = laptoppsk
Endpoint = vpn.example.org:51820
AllowedIPs = 0.0.0.0/0
PersistentKeepalive = 25
`

	generated := RenderClientConf(peer, "laptoppriv", "10.8.0.1", "serverpub", "vpn.example.org", 51820)

	if generated != expected {
		t.Errorf("client config was not rendered as expected:\n%s", diff.LineDiff(expected, generated))
	}
}
