package exchange

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const Platform = "web"

// Session is the per-process identity sent with every exchange. It is
// built once at startup and shared by reference.
type Session struct {
	UserID    string
	Endpoint  string
	UserAgent string
}

func NewSession(endpoint, userAgent string) Session {
	return Session{UserID: NewUserID(), Endpoint: endpoint, UserAgent: userAgent}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewUserID returns "user_" followed by nine random base36 characters.
func NewUserID() string {
	var b strings.Builder
	b.WriteString("user_")
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}

// NewSessionToken mints the per-exchange session id.
func NewSessionToken() string {
	return "session_" + uuid.NewString()
}
