package keymat

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Role distinguishes the single server key pair from per-client ones.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// KeyPair holds a curve25519 key pair, base64 encoded as wireguard expects
// it on disk. The public key is always derived from the private key.
type KeyPair struct {
	Role    Role
	Name    string
	Private string
	Public  string
}

// EnsureKeyPair returns the key pair stored under dir for the given name,
// generating and persisting a fresh one only when no private key exists yet.
// The reuse path never writes the private key file. The returned bool
// reports whether new material was generated.
func EnsureKeyPair(dir string, role Role, name string) (KeyPair, bool, error) {
	privatePath := filepath.Join(dir, name+"_private.key")
	publicPath := filepath.Join(dir, name+"_public.key")

	data, err := os.ReadFile(privatePath)
	if err == nil {
		key, err := wgtypes.ParseKey(strings.TrimSpace(string(data)))
		if err != nil {
			return KeyPair{}, false, fmt.Errorf("stored private key %s: %w", privatePath, err)
		}
		pair := KeyPair{Role: role, Name: name, Private: key.String(), Public: key.PublicKey().String()}
		if _, err := os.Stat(publicPath); os.IsNotExist(err) {
			if err := writeSecretFile(publicPath, pair.Public, 0644); err != nil {
				return KeyPair{}, false, err
			}
		}
		return pair, false, nil
	}
	if !os.IsNotExist(err) {
		return KeyPair{}, false, fmt.Errorf("read private key %s: %w", privatePath, err)
	}

	pair, err := generateKeyPair(role, name)
	if err != nil {
		return KeyPair{}, false, err
	}

	if err := writeSecretFile(privatePath, pair.Private, 0600); err != nil {
		return KeyPair{}, false, err
	}
	if err := writeSecretFile(publicPath, pair.Public, 0644); err != nil {
		return KeyPair{}, false, err
	}

	return pair, true, nil
}

// EnsurePresharedSecret returns the preshared secret stored under dir for
// the given peer name, generating one on first use only.
func EnsurePresharedSecret(dir, name string) (string, bool, error) {
	path := filepath.Join(dir, name+"_preshared.key")

	data, err := os.ReadFile(path)
	if err == nil {
		key, err := wgtypes.ParseKey(strings.TrimSpace(string(data)))
		if err != nil {
			return "", false, fmt.Errorf("stored preshared secret %s: %w", path, err)
		}
		return key.String(), false, nil
	}
	if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("read preshared secret %s: %w", path, err)
	}

	secret, err := randomSecret()
	if err != nil {
		return "", false, err
	}
	if err := writeSecretFile(path, secret, 0600); err != nil {
		return "", false, err
	}

	return secret, true, nil
}

// EnsureAdminCredential persists the filtering-layer admin password. A
// caller-supplied override always replaces a previously stored value; with
// no override the stored value is reused, and a random one is generated on
// first run.
func EnsureAdminCredential(path, override string) (string, bool, error) {
	if override != "" {
		if err := writeSecretFile(path, override, 0600); err != nil {
			return "", false, err
		}
		return override, true, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), false, nil
	}
	if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("read admin credential %s: %w", path, err)
	}

	var raw [18]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", false, fmt.Errorf("unable to generate admin credential: %w", err)
	}
	credential := base64.RawURLEncoding.EncodeToString(raw[:])

	if err := writeSecretFile(path, credential, 0600); err != nil {
		return "", false, err
	}

	return credential, true, nil
}

// generateKeyPair creates a curve25519 key pair from a cryptographically
// secure random source.
// Code is redacted from https://github.com/WireGuard/wireguard-go/blob/1c025570139f614f2083b935e2c58d5dbf199c2f/noise-helpers.go
func generateKeyPair(role Role, name string) (KeyPair, error) {
	var publicKey [32]byte
	var privateKey [32]byte
	_, err := rand.Reader.Read(privateKey[:])
	if err != nil {
		return KeyPair{}, fmt.Errorf("unable to generate a private key: %w", err)
	}

	privateKey[0] &= 248
	privateKey[31] &= 127
	privateKey[31] |= 64

	curve25519.ScalarBaseMult(&publicKey, &privateKey)

	return KeyPair{
		Role:    role,
		Name:    name,
		Private: base64.StdEncoding.EncodeToString(privateKey[:]),
		Public:  base64.StdEncoding.EncodeToString(publicKey[:]),
	}, nil
}

func randomSecret() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("unable to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// writeSecretFile creates the file with its final mode before any content is
// flushed, so secret material is never world-readable in between.
func writeSecretFile(path, content string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
