package aa

import "context"

// Config carries the SDK initialization parameters handed to InitializeWith.
type Config struct {
	GatewayURL string `json:"gateway_url"`
	APIKey     string `json:"api_key"`
	DeviceID   string `json:"device_id,omitempty"`
}

// SDK is the Account Aggregator gateway contract the journey orchestrates.
// Every method is a network call: asynchronous from the product's point of
// view, fallible always. The journey never assumes success and never imposes
// timeouts of its own; deadline policy belongs to the implementation behind
// this interface.
//
// The real implementation is aaclient.Client; tests use a scripted fake.
type SDK interface {
	InitializeWith(ctx context.Context, cfg Config) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// LoginWithUsernameOrMobileNumber starts authentication for the consent
	// handle and returns an OTP reference for VerifyLoginOtp.
	LoginWithUsernameOrMobileNumber(ctx context.Context, username, mobileNumber, consentHandleID string) (otpReference string, err error)
	VerifyLoginOtp(ctx context.Context, otp, otpReference string) (userID string, err error)
	Logout(ctx context.Context) error

	FipsAllFIPOptions(ctx context.Context) ([]FIP, error)
	FetchFipDetails(ctx context.Context, fipID string) (*FIPDetails, error)

	DiscoverAccounts(ctx context.Context, fipID string, identifiers []Identifier) ([]DiscoveredAccount, error)
	// LinkAccounts requests linking for the chosen accounts and returns a
	// link reference consumed by ConfirmAccountLinking.
	LinkAccounts(ctx context.Context, fipID string, accounts []DiscoveredAccount) (linkReference string, err error)
	ConfirmAccountLinking(ctx context.Context, otp, linkReference string) error
	FetchLinkedAccounts(ctx context.Context) ([]LinkedAccount, error)

	GetConsentRequestDetails(ctx context.Context, consentHandleID string) (*ConsentDetails, error)
	ApproveConsentRequest(ctx context.Context, details *ConsentDetails, accounts []LinkedAccount) (consentID string, err error)
	DenyConsentRequest(ctx context.Context, details *ConsentDetails) error
}
