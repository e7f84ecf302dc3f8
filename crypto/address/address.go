package address

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"log"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/tesora-labs/tesora/crypto/hash"
)

const (
	// AddressWords is the number of 5-bit words in the data part of the
	// Bech32 address: 20 bytes of hash -> 160 bits / 5 bits per word.
	AddressWords = 32
	AddressHRP   = "ts"
)

// Address holds the 32 5-bit words of the Bech32 data part.
type Address [AddressWords]byte

// New derives an Address from an ed25519 public key: the first 20 bytes of
// the Blake2b-256 hash of the key, converted to 5-bit words.
func New(pubKey ed25519.PublicKey) (*Address, error) {
	hashBytes := hash.NewHash(pubKey)
	addressBytes := hashBytes[:20]

	words, err := bech32.ConvertBits(addressBytes, 8, 5, true)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key hash to 5-bit words: %v", err)
	}
	if len(words) != AddressWords {
		return nil, fmt.Errorf("unexpected number of words after conversion: got %d, want %d", len(words), AddressWords)
	}

	var address Address
	copy(address[:], words)
	return &address, nil
}

// NullAddress is the zeroed Address. Transfers to or from it are treated as
// mint and burn paths by the fee engine.
func NullAddress() *Address {
	return &Address{}
}

// Validate checks if a string is a valid Bech32 address with the correct HRP
// and data length.
func Validate(addr string) bool {
	hrp, words, err := bech32.Decode(addr)
	if err != nil {
		return false
	}
	if hrp != AddressHRP {
		return false
	}
	return len(words) == AddressWords
}

// FromString converts a bech32 address string to an Address.
func FromString(addr string) (*Address, error) {
	hrp, words, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bech32 address '%s': %v", addr, err)
	}
	if hrp != AddressHRP {
		return nil, fmt.Errorf("invalid address HRP: expected '%s', got '%s'", AddressHRP, hrp)
	}
	if len(words) != AddressWords {
		return nil, fmt.Errorf("invalid decoded data length: expected %d words, got %d", AddressWords, len(words))
	}

	var newAddr Address
	copy(newAddr[:], words)
	return &newAddr, nil
}

func (a *Address) Bytes() []byte {
	return a[:]
}

func (a *Address) String() string {
	encoded, err := bech32.Encode(AddressHRP, a.Bytes())
	if err != nil {
		log.Printf("ERROR: Failed to encode address bytes to bech32: %v", err)
		return ""
	}
	return encoded
}

func (a *Address) IsNull() bool {
	return bytes.Equal(a.Bytes(), NullAddress().Bytes())
}

func (a *Address) Equal(other *Address) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(a.Bytes(), other.Bytes())
}
