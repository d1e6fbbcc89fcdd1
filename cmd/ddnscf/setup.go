package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const verifyTimeout = 5 * time.Second

func newSetupCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Verify a Cloudflare API token and save it to a key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verify := func(ctx context.Context, token string) error {
				return cfddns.VerifyToken(ctx, token)
			}
			return runSetup(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), path, verify)
		},
	}
	cmd.Flags().StringVar(&path, "cf-api-token-file", defaultKeyFile(), "Where to save the token")
	return cmd
}

type verifyFunc func(ctx context.Context, token string) error

func runSetup(ctx context.Context, in io.Reader, out io.Writer, path string, verify verifyFunc) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file \"%s\" already exists", path)
	}

	fmt.Fprint(out, "Cloudflare API token: ")
	token, err := readToken(in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("error reading token: %w", err)
	}
	if token == "" {
		return errors.New("no token entered")
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	if err := verify(ctx, token); err != nil {
		return fmt.Errorf("token verification failed: %w", err)
	}
	if err := writeKey(path, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", path)
	return nil
}

// readToken reads without echo when in is a terminal.
func readToken(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
