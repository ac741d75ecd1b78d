package email

// Config holds email service configuration.
// The Postmark tokens are optional so development environments can run with
// the file-based DevSender instead. SenderEmail establishes the sender
// identity of all outbound mail, SupportEmail its reply-to.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@greenmiles.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@greenmiles.app"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`
}
