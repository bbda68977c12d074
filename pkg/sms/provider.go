package sms

import (
	"context"
	"fmt"
)

type Config struct {
	Provider         string // twilio, sns, none
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	AWSRegion        string
	DefaultFrom      string
}

// NewProvider builds the provider named by config.Provider.
func NewProvider(ctx context.Context, config *Config) (SMSProvider, error) {
	switch config.Provider {
	case "twilio":
		if config.TwilioAccountSID == "" || config.TwilioAuthToken == "" {
			return nil, fmt.Errorf("twilio credentials are not configured")
		}
		return NewTwilioProvider(config.TwilioAccountSID, config.TwilioAuthToken, config.TwilioFromNumber), nil
	case "sns":
		return NewAWSSNSProvider(ctx, config.AWSRegion, config.DefaultFrom)
	case "none", "":
		return NoopProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", config.Provider)
	}
}
