package service

// QRCodeService defines the interface for QR code generation services
type QRCodeService interface {
	// GenerateLinkQR encodes a URL as a PNG QR code for embedding in mail.
	GenerateLinkQR(url string) ([]byte, error)
}
