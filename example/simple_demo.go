package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/MichaelAJay/go-encrypter"
	"github.com/MichaelAJay/go-logger"
	"github.com/MichaelAJay/go-metrics"
	"github.com/MichaelAJay/go-security-policy/provider"
	"github.com/MichaelAJay/go-security-policy/security"
	"github.com/MichaelAJay/go-security-policy/securitylog"
	"github.com/MichaelAJay/go-security-policy/validation"
)

// Walks through the sign-up and sign-in checks with the in-memory backend.

func main() {
	ctx := context.Background()
	fmt.Println("=== Go Security Policy Demo ===")
	fmt.Println()

	// Identifiers are hashed before they become storage keys
	key := []byte("your-32-byte-key-here-for-demo!!") // Exactly 32 bytes
	enc, err := encrypter.NewAESEncrypter(key)
	if err != nil {
		log.Fatalf("Failed to create encrypter: %v", err)
	}

	cfg := security.DefaultConfig()
	store, closeStore, err := security.OpenStore(ctx, cfg.Storage, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	notifier := securitylog.AlertNotifierFunc(func(ctx context.Context, alert securitylog.Alert) {
		fmt.Printf("! ALERT %s (%s): %s\n", alert.Rule, alert.Severity, alert.Message)
	})
	logs := logger.New(logger.Config{Level: logger.WarnLevel, Output: os.Stderr})
	client := securitylog.ClientInfo{UserAgent: "Mozilla/5.0 (demo)", Language: "en-US", Timezone: "UTC"}
	suite := security.New(cfg, store, enc, logs, metrics.NewRegistry(),
		securitylog.WithAlertNotifier(notifier),
		securitylog.WithClientInfo(client, enc))
	fmt.Println("✓ Security suite initialized")

	sessionID, err := security.GenerateSecureToken(16)
	if err != nil {
		log.Fatalf("Failed to generate session token: %v", err)
	}
	fmt.Printf("✓ Session token: %s\n", sessionID)

	// Sign-up: password strength
	fmt.Println("\n=== Password Policy ===")
	user := validation.UserContext{Email: "john.doe@example.com", Name: "John Doe"}
	for _, pw := range []string{"password123", "johndoe-Secret1!", "Tr0ub4dor&Xyz!"} {
		assessment := suite.Passwords.Evaluate(pw, user)
		fmt.Printf("%-18s valid=%t strength=%d (%s)\n", pw, assessment.IsValid, assessment.Strength, assessment.Label())
		for _, code := range assessment.Errors {
			fmt.Printf("  - %s\n", suite.Passwords.ErrorMessage(code))
		}
		for _, code := range assessment.Warnings {
			fmt.Printf("  ~ %s\n", validation.WarningMessage(code))
		}
	}

	// Sign-in: attempt limiting and provider failures
	fmt.Println("\n=== Sign-in Attempts ===")
	now := time.Now()
	for i := 1; i <= 6; i++ {
		decision := suite.CheckLogin(ctx, user.Email, now)
		if !decision.Allowed {
			fmt.Printf("Attempt %d blocked, retry in %d seconds\n", i, decision.RetryAfterSeconds)
			break
		}
		appErr, _ := suite.ProviderFailed(ctx, provider.FlowLogin, "auth/wrong-password", "", nil)
		fmt.Printf("Attempt %d: %s (%d left)\n", i, appErr.Message, decision.Remaining)
	}

	// A later successful sign-in clears the counter
	suite.LoginSucceeded(ctx, user.Email, "user-123", sessionID)

	fmt.Println("\n=== Security Log ===")
	for _, ev := range suite.Events.Recent(ctx, 15*time.Minute, time.Now()) {
		fmt.Printf("%s %-16s %-6s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Severity, ev.Fingerprint)
	}

	fmt.Println("\n=== Demo Complete ===")
}
