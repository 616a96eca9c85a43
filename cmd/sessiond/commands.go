package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"sessiond/cmd/internal/app"
	"sessiond/cmd/security/password"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessiond",
		Short: "Server-side session lifecycle manager",
		Long: `sessiond issues opaque session ids, enforces an inactivity window and an
absolute lifetime cap, and exposes login, rotation and revocation over HTTP.

Configuration is read from SESSIOND_* environment variables and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), hashPasswordCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the background sweeper",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run()
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	var (
		memoryKiB   uint32
		iterations  uint32
		parallelism uint8
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the operators file",
		Long: `Reads a password from the first line of stdin and prints its Argon2id PHC
string, ready for the password_hash field of operators.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plain, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg := password.DefaultConfig().WithCost(memoryKiB, iterations, parallelism)
			if err := cfg.Check(); err != nil {
				return err
			}

			hash, err := cfg.Hash(plain)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().Uint32Var(&memoryKiB, "memory", 0, "Argon2id memory in KiB (0 keeps the default)")
	cmd.Flags().Uint32Var(&iterations, "iterations", 0, "Argon2id iterations (0 keeps the default)")
	cmd.Flags().Uint8Var(&parallelism, "parallelism", 0, "Argon2id parallelism (0 keeps the default)")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessiond %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
