package test

import "github.com/mguentner/mailtoken/config"

func DefaultConfig() config.Config {
	return config.Config{
		ListenPort:                     8080,
		LoginTokenLifetimeMilliseconds: 300000,
		SMTP: config.SMTPConfig{
			FromAddr: "alice@example.com",
			User:     "alice",
			Password: "insecure",
			Host:     "example.com",
			Port:     25,
		},
		TokenFormat:                 "hex",
		TokenLength:                 10,
		ServiceName:                 "TestService",
		KeyPath:                     "/nonexistent",
		AccessTokenLifetimeSeconds:  3600,
		RefreshTokenLifetimeSeconds: 259200,
		StateRetentionSeconds:       3600,
		BcryptCost:                  4,
	}
}
