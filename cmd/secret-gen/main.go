package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"kailospay.backend/pkg/crypto"
)

const defaultTokenBytes = 32

var (
	hashFn  = crypto.HashPassword
	tokenFn = crypto.GenerateRandomToken
)

const usage = `usage:
  secret-gen token [bytes]   random hex secret for ADMIN_TOKEN / INTERNAL_CALL_TOKEN
  secret-gen hash <password> bcrypt hash of password`

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "token":
		n := defaultTokenBytes
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 16 || v > 256 {
				return fmt.Errorf("bytes must be between 16 and 256, got %q", args[1])
			}
			n = v
		}
		secret, err := tokenFn(n)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, secret)
		return nil

	case "hash":
		if len(args) < 2 || args[1] == "" {
			return errors.New("hash needs a password argument")
		}
		hash, err := hashFn(args[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Bcrypt Hash: %s\n", hash)
		return nil
	}
	return errors.New(usage)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}
