package provision

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xelyr/privacy-gateway/pkg/keymat"
	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/wgconf"
)

// clientPeer bundles a client's peer view with its private key, which only
// ever ends up in the client-facing config.
type clientPeer struct {
	Peer       wgconf.Peer
	PrivateKey string
}

// ensureClientPeer reuses or generates the key material for one client.
func ensureClientPeer(cfg *Config, address, allowedRange, name string) (clientPeer, error) {
	dir := filepath.Join(cfg.ClientsDir(), name)

	pair, generated, err := keymat.EnsureKeyPair(dir, keymat.RoleClient, name)
	if err != nil {
		return clientPeer{}, err
	}
	logKeyMaterial(name, generated)

	secret, _, err := keymat.EnsurePresharedSecret(dir, name)
	if err != nil {
		return clientPeer{}, err
	}

	return clientPeer{
		Peer: wgconf.Peer{
			Name:         name,
			Address:      address,
			AllowedRange: allowedRange,
			PublicKey:    pair.Public,
			PresharedKey: secret,
		},
		PrivateKey: pair.Private,
	}, nil
}

// loadClientPeers rebuilds the full peer list from the clients directory,
// so regenerating the server document never drops previously added clients.
func loadClientPeers(cfg *Config) ([]wgconf.Peer, error) {
	entries, err := os.ReadDir(cfg.ClientsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read clients dir: %w", err)
	}

	var peers []wgconf.Peer
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(cfg.ClientsDir(), name)

		publicKey, err := readKeyFile(filepath.Join(dir, name+"_public.key"))
		if err != nil {
			return nil, err
		}
		secret, err := readKeyFile(filepath.Join(dir, name+"_preshared.key"))
		if err != nil {
			return nil, err
		}
		address, err := readConfAddress(cfg.ClientConfPath(name))
		if errors.Is(err, os.ErrNotExist) {
			// key material without a rendered config, a later run
			// re-renders it
			continue
		}
		if err != nil {
			return nil, err
		}

		peers = append(peers, wgconf.Peer{
			Name:         name,
			Address:      address,
			AllowedRange: singleHostRange(address),
			PublicKey:    publicKey,
			PresharedKey: secret,
		})
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].Name < peers[j].Name })
	return peers, nil
}

// AddClient provisions one additional client against an already provisioned
// host: new key material, a free tunnel address, a regenerated server
// document containing every known client, and a fresh client config.
// Calling it again for an existing name reuses the client's address and key
// material.
func AddClient(cfg *Config, plan *netplan.NetworkPlan, egressIface string, runner Runner, name string) (string, error) {
	serverKeyPath := filepath.Join(cfg.KeyDir(), "server_private.key")
	if _, err := os.Stat(serverKeyPath); err != nil {
		return "", fmt.Errorf("host is not provisioned yet (missing %s), run provision first", serverKeyPath)
	}

	serverPair, _, err := keymat.EnsureKeyPair(cfg.KeyDir(), keymat.RoleServer, "server")
	if err != nil {
		return "", err
	}

	existing, err := loadClientPeers(cfg)
	if err != nil {
		return "", err
	}

	address, allowedRange, err := clientAddress(plan, existing, name)
	if err != nil {
		return "", err
	}

	peer, err := ensureClientPeer(cfg, address, allowedRange, name)
	if err != nil {
		return "", err
	}

	confPath := cfg.ClientConfPath(name)
	clientConf := wgconf.RenderClientConf(peer.Peer, peer.PrivateKey, plan.ServerIP(), serverPair.Public, cfg.Endpoint, cfg.ListenPort)
	if err := runner.WriteFile(confPath, clientConf, 0600); err != nil {
		return "", err
	}

	peers, err := loadClientPeers(cfg)
	if err != nil {
		return "", err
	}
	serverConf := wgconf.RenderServerConf(plan, serverPair.Private, peers, cfg.ListenPort, cfg.Interface, egressIface)
	if err := runner.WriteFile(cfg.ServerConfPath(), serverConf, 0600); err != nil {
		return "", err
	}

	writeScanArtifact(runner, confPath, cfg.ScanArtifactPath(name))

	if _, err := runner.RunCmd(fmt.Sprintf("systemctl restart wg-quick@%s", cfg.Interface)); err != nil {
		return "", err
	}

	return confPath, nil
}

// clientAddress keeps an existing client's address and allocates the lowest
// free one for a new client, so adding clients never renumbers the peers
// already handed out.
func clientAddress(plan *netplan.NetworkPlan, existing []wgconf.Peer, name string) (string, string, error) {
	used := make(map[string]bool, len(existing))
	for _, peer := range existing {
		if peer.Name == name {
			return peer.Address, peer.AllowedRange, nil
		}
		used[peer.Address] = true
	}

	for position := 0; ; position++ {
		address, allowedRange, err := plan.ClientAt(position)
		if err != nil {
			return "", "", err
		}
		if !used[address] {
			return address, allowedRange, nil
		}
	}
}

func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// readConfAddress extracts the Address value from a rendered client config.
func readConfAddress(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read client config: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Address") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no Address entry in %s", path)
}

func singleHostRange(address string) string {
	return strings.SplitN(address, "/", 2)[0] + "/32"
}
