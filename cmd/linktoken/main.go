// linktoken generates link registry identities and mints the bearer tokens
// that authorize requests made on their behalf.
//
//	linktoken keygen
//	linktoken mint --seed <hex> [--ttl 1h]
//
// keygen prints the identity (hex public key) and the hex private key seed.
// mint reads the seed from --seed or LINKTOKEN_SEED and prints a token.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/serroba/link-registry/internal/auth"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: linktoken keygen | mint --seed <hex> [--ttl duration]")
	}

	switch args[0] {
	case "keygen":
		return keygen()
	case "mint":
		return mint(args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func keygen() error {
	id, priv, err := auth.GenerateKey()
	if err != nil {
		return err
	}

	fmt.Printf("identity: %s\nseed:     %s\n", id, hex.EncodeToString(priv.Seed()))

	return nil
}

func mint(args []string) error {
	var seedHex string

	var ttl time.Duration

	flagSet := pflag.NewFlagSet("linktoken mint", pflag.ContinueOnError)
	flagSet.StringVar(&seedHex, "seed", os.Getenv("LINKTOKEN_SEED"), "hex Ed25519 private key seed")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return fmt.Errorf("seed must be %d hex-encoded bytes", ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	token, err := auth.Mint(priv, time.Now(), ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "identity: %s\n", auth.IdentityOf(priv.Public().(ed25519.PublicKey)))
	fmt.Println(token)

	return nil
}
