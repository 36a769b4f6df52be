package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserComment is feedback submitted from a site's contact form. Comments
// are stored for review and forwarded to the configured site address.
type UserComment struct {
	ID         uuid.UUID
	UserID     *uuid.UUID // Set when the submitter was logged in.
	Email      string     // Submitter's email, if provided.
	Subject    string     // Short topic line chosen by the submitter.
	SendTo     string     // Address the comment was forwarded to.
	Body       string     // The comment text.
	RemoteAddr string     // Client IP the comment was submitted from.
	RemoteHost string     // Reverse DNS of RemoteAddr, if resolved.
	SiteName   string     // Hostname of the site the comment came from.
	CreatedAt  time.Time  // Submission timestamp.
}
