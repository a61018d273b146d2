package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/biometric"
	"github.com/secureface/secureface/internal/config"
	"github.com/secureface/secureface/internal/notify"
	"github.com/secureface/secureface/internal/store"
	"github.com/secureface/secureface/internal/store/postgres"
	"github.com/secureface/secureface/internal/store/redisotp"
)

// buildDeps wires the flow collaborators from the environment: PostgreSQL
// or in-memory identities, Redis or in-memory OTP codes, Gemini or OpenAI
// verification, SMTP or log delivery. The returned cleanup closes whatever
// connections were opened.
func buildDeps(ctx context.Context, cfg *config.Config) (authflow.Deps, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	verifier, err := biometric.NewFromConfig(ctx, cfg)
	if err != nil {
		if !errors.Is(err, biometric.ErrNotConfigured) {
			return authflow.Deps{}, cleanup, err
		}
		log.Printf("CONFIGURATION ERROR: no biometric backend configured, set GEMINI_API_KEY or OPENAI_TOKEN. Verification requests will fail.")
		verifier = biometric.Disabled{}
	} else {
		fmt.Printf("Biometric verification backend: %s\n", verifier.Name())
	}

	var identities authflow.Identities
	if cfg.Database.URL != "" {
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			cleanup()
			return authflow.Deps{}, func() {}, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		cleanups = append(cleanups, func() { pool.Close() })
		identities = postgres.NewUserRepository(pool)
		fmt.Printf("Identity storage: PostgreSQL\n")
	} else {
		identities = store.NewIdentityStore(store.NewMemoryKV())
		fmt.Printf("Identity storage: in-memory (set DATABASE_URL for persistence)\n")
	}

	// The verifier doubles as the optional AI code source; malformed or
	// failed output falls back to the local generator inside the store.
	var otps authflow.OTPs
	if cfg.Redis.URL != "" {
		client, err := redisotp.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			cleanup()
			return authflow.Deps{}, func() {}, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		cleanups = append(cleanups, func() { client.Close() })
		otps = redisotp.New(client, verifier, cfg.Policy.OTP.TTL())
		fmt.Printf("OTP storage: Redis\n")
	} else {
		otps = store.NewOTPStore(store.NewMemoryKV(), verifier, cfg.Policy.OTP.TTL())
		fmt.Printf("OTP storage: in-memory\n")
	}

	var notifier notify.Notifier
	if cfg.SMTP.Configured() {
		notifier = notify.NewSMTPNotifier(cfg.SMTP)
		fmt.Printf("OTP delivery: SMTP via %s\n", cfg.SMTP.Host)
	} else {
		notifier = &notify.LogNotifier{}
		fmt.Printf("OTP delivery: process log (set SMTP_HOST and SMTP_FROM for email)\n")
	}

	return authflow.Deps{
		Identities: identities,
		OTPs:       otps,
		Verifier:   verifier,
		Notifier:   notifier,
		Policy:     cfg.Policy,
	}, cleanup, nil
}
