// Command accesstoken mints access tokens for local development and generates secret keys.
//
//	accesstoken --new-secret
//	accesstoken --secret-key <key> --account <uuid> [--role admin] [--ttl 1h]
//
// SECRET_KEY from the environment is used when --secret-key is not given.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/service/auth/tokenmanager"
)

const SecretKeyBytesLen = 32

func main() {
	if err := run(os.Stdout, os.Getenv, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "accesstoken: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, getenv func(string) string, args []string) error {
	var (
		newSecret bool
		secretKey = getenv("SECRET_KEY")
		account   string
		role      = models.RoleUser
		ttl       = time.Hour
	)

	fs := pflag.NewFlagSet("accesstoken", pflag.ContinueOnError)
	fs.BoolVar(&newSecret, "new-secret", false, "Print new random secret key and exit")
	fs.StringVarP(&secretKey, "secret-key", "s", secretKey, "Secret key shared with the ledger service")
	fs.StringVarP(&account, "account", "u", "", "Account id the token is issued for")
	fs.StringVarP(&role, "role", "r", role, "Role (user, admin)")
	fs.DurationVar(&ttl, "ttl", ttl, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if newSecret {
		secret, err := generateSecret()
		if err != nil {
			return fmt.Errorf("error while generating secret key: %w", err)
		}
		_, err = fmt.Fprintln(out, secret)
		return err
	}

	accountID, err := uuid.Parse(account)
	if err != nil {
		return fmt.Errorf("invalid account id %q: %w", account, err)
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		return errors.New("ttl has to be positive")
	}

	tm, err := tokenmanager.New(tokenmanager.Config{SecretKey: secretKey, AccessTTL: ttl})
	if err != nil {
		return err
	}

	issued, err := tm.Issue(models.Principal{AccountID: accountID, Role: role})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, issued.Value)
	return err
}

func generateSecret() (string, error) {
	b := make([]byte, SecretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
