package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/tesora-labs/tesora/crypto/address"
)

// KeyPair bundles an ed25519 keypair with its derived ledger address.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Address    *address.Address
}

// NewKeyPair generates a fresh random keypair.
func NewKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %v", err)
	}
	return fromKeys(pub, priv)
}

// NewMnemonic returns a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %v", err)
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic deterministically derives a keypair from a BIP-39 mnemonic.
// The first 32 bytes of the seed become the ed25519 seed.
func FromMnemonic(mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return fromKeys(priv.Public().(ed25519.PublicKey), priv)
}

func fromKeys(pub ed25519.PublicKey, priv ed25519.PrivateKey) (*KeyPair, error) {
	addr, err := address.New(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %v", err)
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv, Address: addr}, nil
}
