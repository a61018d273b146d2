package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the login flow from an image file",
	Long: `Run the full login flow without the browser frontend: face match
against the stored reference through continuous scanning, then the OTP
second factor read from stdin.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("image", "", "Path to the face image (required)")
	loginCmd.Flags().String("email", "", "Email address (required)")
	loginCmd.Flags().Int("attempts", 3, "Scan attempts before giving up")
	loginCmd.MarkFlagRequired("image")
	loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	flow := authflow.NewLogin(deps)
	if err := flow.Identify(ctx, mustGetString(cmd, "email")); err != nil {
		return err
	}

	pipeline := newFilePipeline(cfg, mustGetString(cmd, "image"))
	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("acquiring capture device: %w", err)
	}
	defer pipeline.Close()

	attempts := 0
	maxAttempts := mustGetInt(cmd, "attempts")
	scanErr := pipeline.Scan(ctx, func(sample []byte) (bool, error) {
		attempts++
		err := flow.SubmitScan(ctx, sample)
		switch {
		case err == nil, errors.Is(err, authflow.ErrDeliveryFailure):
			return true, nil
		case errors.Is(err, authflow.ErrBiometricMismatch), errors.Is(err, authflow.ErrRateLimited):
			fmt.Printf("Scan %d/%d failed: %v\n", attempts, maxAttempts, err)
			if attempts >= maxAttempts {
				return false, fmt.Errorf("face verification failed after %d attempts", attempts)
			}
			return false, nil
		default:
			return false, err
		}
	})
	if scanErr != nil {
		return scanErr
	}

	fmt.Printf("%s\n", flow.Message())
	fmt.Print("Enter the 6-digit code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading code: %w", err)
	}

	if err := flow.SubmitOTP(ctx, strings.TrimSpace(code)); err != nil {
		return err
	}

	fmt.Printf("%s\n", flow.Message())
	return nil
}
