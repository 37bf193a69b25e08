package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reeveops/reeve/internal/resolve"
	"github.com/reeveops/reeve/internal/server"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage encrypted parameter stores",
	}

	cmd.AddCommand(newStoreEncryptCmd())
	cmd.AddCommand(newStoreHashPasswordCmd())

	return cmd
}

func newStoreEncryptCmd() *cobra.Command {
	var identity string
	var passphrase string

	cmd := &cobra.Command{
		Use:   "encrypt <plaintext> <encrypted>",
		Short: "Encrypt a plaintext store file with age",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if identity == "" && passphrase == "" {
				return fmt.Errorf("either --identity or --passphrase is required")
			}

			key := &resolve.Key{IdentityFile: identity, Passphrase: passphrase}
			if err := resolve.EncryptStore(args[0], args[1], key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "encrypted %s to %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Path to an age identity file")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Scrypt passphrase (used when no identity file is given)")

	return cmd
}

func newStoreHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an API user password for the store's users namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := server.HashPassword(password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// readPassword prompts on a terminal and otherwise reads one line from
// stdin, so the command works in pipelines.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
