// Command cash-keytool manages validator and reporter keystores and signs
// transaction requests and price messages offline.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cashchain/cmd/internal/passphrase"
	"cashchain/crypto"
	"cashchain/native/cash"
	"cashchain/native/oracle"
)

const (
	generateCommand    = "generate"
	addressCommand     = "address"
	signRequestCommand = "sign-request"
	signPriceCommand   = "sign-price"
	defaultPassEnv     = "CASH_KEYSTORE_PASSPHRASE"
	defaultKeystore    = "validator.keystore"
)

type passFunc func(confirm bool) (string, error)

func envOrPrompt(envVar string) passFunc {
	return func(confirm bool) (string, error) {
		opts := []passphrase.Option{passphrase.WithLabel("keystore")}
		if confirm {
			opts = append(opts, passphrase.WithConfirm())
		}
		return passphrase.NewSource(envVar, opts...).Get()
	}
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}
	if err := dispatch(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string, out io.Writer) error {
	switch cmd {
	case generateCommand:
		return runGenerate(args, out, nil)
	case addressCommand:
		return runAddress(args, out, nil)
	case signRequestCommand:
		return runSignRequest(args, out, nil)
	case signPriceCommand:
		return runSignPrice(args, out, nil)
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newFlags(name string, pass *passFunc) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Path to the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable holding the keystore passphrase")
	if *pass == nil {
		*pass = func(confirm bool) (string, error) { return envOrPrompt(*passEnv)(confirm) }
	}
	return fs, keystorePath
}

func loadKey(path string, pass passFunc) (*crypto.PrivateKey, error) {
	secret, err := pass(false)
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, secret)
}

func runGenerate(args []string, out io.Writer, pass passFunc) error {
	fs, keystorePath := newFlags(generateCommand, &pass)
	force := fs.Bool("force", false, "Overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*keystorePath); err == nil && !*force {
		return fmt.Errorf("%s exists; pass -force to overwrite", *keystorePath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	secret, err := pass(true)
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, secret); err != nil {
		return err
	}
	addr := key.PubKey().EthAddress()
	fmt.Fprintf(out, "keystore: %s\naddress:  %s\n", *keystorePath, crypto.EthEncodeHex(addr[:]))
	return nil
}

func runAddress(args []string, out io.Writer, pass passFunc) error {
	fs, keystorePath := newFlags(addressCommand, &pass)
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := loadKey(*keystorePath, pass)
	if err != nil {
		return err
	}
	addr := key.PubKey().EthAddress()
	fmt.Fprintln(out, crypto.EthEncodeHex(addr[:]))
	return nil
}

func runSignRequest(args []string, out io.Writer, pass passFunc) error {
	fs, keystorePath := newFlags(signRequestCommand, &pass)
	request := fs.String("request", "", "Transaction request, e.g. \"(Extract 100 ETH Eth:0x...)\"")
	nonce := fs.Uint("nonce", 0, "Account nonce")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*request) == "" {
		return errors.New("-request required")
	}
	key, err := loadKey(*keystorePath, pass)
	if err != nil {
		return err
	}
	sig, err := cash.SignTrxRequest(*request, uint32(*nonce), key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, crypto.EthEncodeHex(sig.Sig[:]))
	return nil
}

func runSignPrice(args []string, out io.Writer, pass passFunc) error {
	fs, keystorePath := newFlags(signPriceCommand, &pass)
	ticker := fs.String("ticker", "", "Price key, e.g. BTC")
	value := fs.Uint64("value", 0, "Price in micro-dollars")
	at := fs.Int64("timestamp", 0, "Unix seconds (defaults to now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*ticker) == "" {
		return errors.New("-ticker required")
	}
	if *at <= 0 {
		*at = time.Now().Unix()
	}
	key, err := loadKey(*keystorePath, pass)
	if err != nil {
		return err
	}
	payload, err := oracle.EncodeMessage(uint64(*at), strings.ToUpper(strings.TrimSpace(*ticker)), *value)
	if err != nil {
		return err
	}
	sig, err := oracle.SignMessage(payload, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "payload:   %s\nsignature: %s\n", crypto.EthEncodeHex(payload), crypto.EthEncodeHex(sig))
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: cash-keytool <command> [flags]

Commands:
  %-13s create a new encrypted keystore
  %-13s print the keystore's Ethereum address
  %-13s sign a transaction request at a nonce
  %-13s sign an open price feed message
`, generateCommand, addressCommand, signRequestCommand, signPriceCommand)
}
