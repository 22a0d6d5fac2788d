package config

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewFirebaseApp 建立共用的 Firebase app；Auth / Firestore / Storage 都從這裡取 client
func NewFirebaseApp(ctx context.Context, cfg *Config) (*firebase.App, error) {
	opts, err := credentialOptions(cfg.Firebase)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return app, nil
}

// 憑證順序：JSON 字串 > 檔案 > emulator（不需要憑證）
func credentialOptions(fc FirebaseConfig) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	switch {
	case fc.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(fc.CredentialsJSON)))
	case fc.CredentialsFile != "":
		if _, err := os.Stat(fc.CredentialsFile); err != nil {
			return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS %q not readable: %w", fc.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(fc.CredentialsFile))
	case os.Getenv("FIREBASE_AUTH_EMULATOR_HOST") != "" || os.Getenv("FIRESTORE_EMULATOR_HOST") != "":
	default:
		return nil, fmt.Errorf("missing Firebase credentials: set FIREBASE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS, or use the emulators / NO_AUTH=1 with PORTFOLIO_STORE=memory")
	}
	return opts, nil
}
