package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tesora-labs/tesora/crypto"
)

// tesora is the offline wallet helper: it generates key pairs and recovers
// them from a mnemonic. Nothing here touches the network.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		keygen()
	case "recover":
		recoverKey(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tesora <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  keygen             generate a new key pair with a recovery mnemonic")
	fmt.Fprintln(os.Stderr, "  recover -mnemonic  rebuild a key pair from its mnemonic")
}

func keygen() {
	mnemonic, err := crypto.NewMnemonic()
	if err != nil {
		log.Fatalf("Failed to generate mnemonic: %v", err)
	}

	pair, err := crypto.FromMnemonic(mnemonic, "")
	if err != nil {
		log.Fatalf("Failed to derive key pair: %v", err)
	}

	printKeyPair(pair)
	fmt.Println("\nRecovery mnemonic (write it down, keep it offline):")
	fmt.Printf("\n%s\n", mnemonic)
}

func recoverKey(args []string) {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "the 24-word recovery phrase")
	passphrase := fs.String("passphrase", "", "optional mnemonic passphrase")
	fs.Parse(args)

	if *mnemonic == "" {
		log.Fatal("recover requires -mnemonic")
	}

	pair, err := crypto.FromMnemonic(*mnemonic, *passphrase)
	if err != nil {
		log.Fatalf("Failed to recover key pair: %v", err)
	}
	printKeyPair(pair)
}

func printKeyPair(pair *crypto.KeyPair) {
	fmt.Printf("Address:     %s\n", pair.Address)
	fmt.Printf("Public key:  %s\n", base64.StdEncoding.EncodeToString(pair.PublicKey))
	fmt.Printf("Private key: %s\n", base64.StdEncoding.EncodeToString(pair.PrivateKey))
}
