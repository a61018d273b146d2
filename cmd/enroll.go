package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/capture"
	"github.com/secureface/secureface/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll an identity from an image file",
	Long: `Enroll an identity without the browser frontend. The image file stands
in for the camera; it goes through the same capture pipeline (mirroring,
downscaling, JPEG encoding) and the same liveness check as a live capture.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("image", "", "Path to the face image (required)")
	enrollCmd.Flags().String("name", "", "Full name (required)")
	enrollCmd.Flags().String("email", "", "Email address (required)")
	enrollCmd.Flags().String("phone", "", "Phone number")
	enrollCmd.Flags().String("pin", "", "Security PIN")
	enrollCmd.MarkFlagRequired("image")
	enrollCmd.MarkFlagRequired("name")
	enrollCmd.MarkFlagRequired("email")
}

// newFilePipeline builds a capture pipeline fed by a still image, tuned by
// the embedded policy.
func newFilePipeline(cfg *config.Config, imagePath string) *capture.Pipeline {
	return capture.NewPipeline(&capture.FileOpener{Path: imagePath}, capture.Options{
		MaxWidth:     cfg.Policy.Capture.MaxWidth,
		JPEGQuality:  cfg.Policy.Capture.JPEGQuality,
		SettleDelay:  cfg.Policy.Capture.SettleDelay(),
		ScanInterval: cfg.Policy.Capture.ScanInterval(),
	})
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	flow := authflow.NewEnrollment(deps)
	if err := flow.SubmitProfile(ctx, authflow.Profile{
		Name:  mustGetString(cmd, "name"),
		Email: mustGetString(cmd, "email"),
		Phone: mustGetString(cmd, "phone"),
		PIN:   mustGetString(cmd, "pin"),
	}); err != nil {
		return err
	}

	pipeline := newFilePipeline(cfg, mustGetString(cmd, "image"))
	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("acquiring capture device: %w", err)
	}
	defer pipeline.Close()

	sample, err := pipeline.CaptureNow(ctx)
	if err != nil {
		return fmt.Errorf("capturing sample: %w", err)
	}

	if err := flow.SubmitCapture(ctx, sample); err != nil {
		return err
	}

	fmt.Printf("%s\n", flow.Message())
	return nil
}
