package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "secureface",
	Short: "Face-biometric authentication service with an OTP second factor",
	Long: `SecureFace is a demo authentication service. Users enroll with a face
capture and profile data, then sign in by presenting a fresh capture that is
matched against the stored reference, followed by a one-time passcode sent
by email. Face matching and liveness detection are delegated to a
multimodal AI backend (Gemini or OpenAI).`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
