package buildinfo

// Set via -ldflags "-X github.com/varsilias/webhook-chat/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	BuiltAt = "unknown"
)

// UserAgent is the default User-Agent reported to the webhook.
func UserAgent() string {
	return "webhook-chat/" + Version
}
