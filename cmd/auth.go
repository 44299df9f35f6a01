package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Create credentials for protected updates",
	Long: `Create the credentials checked by "serve --enable-update".

An API key is stored only as its bcrypt hash: pass the hash to
--api-key-hash and send the key in the x-api-key header. A token is a JWT
signed with --token-secret and sent as "Authorization: Bearer <token>".`,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key KEY",
	Short: "Print the bcrypt hash of an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.ValidateAPIKey(args[0]); err != nil {
			return domain.NewValidationError("key", err.Error())
		}
		hash, err := auth.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var generateKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Generate a random API key and its bcrypt hash",
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := generateRandomKey(32)
		if err != nil {
			return err
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "API key:      %s\n", key)
		_, _ = fmt.Fprintf(out, "API key hash: %s\n", hash)
		_, _ = fmt.Fprintln(out, "Save the key now, only the hash is needed by serve.")
		return nil
	},
}

var (
	tokenSecret  string
	tokenSubject string
	tokenHours   int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an update bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenSecret == "" {
			return domain.NewUsageError("--secret is required")
		}
		if err := auth.ValidateSubject(tokenSubject); err != nil {
			return domain.NewValidationError("subject", err.Error())
		}
		token, err := auth.GenerateToken(tokenSubject, tokenSecret, tokenHours)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var generateSecretCmd = &cobra.Command{
	Use:   "generate-secret",
	Short: "Generate a random token secret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		secret, err := generateTokenSecret()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(hashKeyCmd, generateKeyCmd, tokenCmd, generateSecretCmd)

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "HMAC secret, the same value as serve --token-secret")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "updater", "subject recorded in the update journal")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 24, "validity in hours")
}

// generateRandomKey generates a random API key of length characters
func generateRandomKey(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	key := make([]byte, length)
	for i := range key {
		key[i] = charset[int(b[i])%len(charset)]
	}

	return string(key), nil
}

// generateTokenSecret generates a random token secret
func generateTokenSecret() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
