package credential

import (
	"encoding/base64"
	"fmt"

	"parkgate/internal/models"

	qrcode "github.com/skip2/go-qrcode"
)

// QRRenderer renders a credential payload into a PNG QR image. The display
// metadata is carried in the API response next to the image rather than drawn
// onto it; the scannable content is the payload alone.
type QRRenderer struct {
	size int
}

func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = 256
	}
	return &QRRenderer{size: size}
}

func (r *QRRenderer) Render(payload string, _ models.CredentialDisplay) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to render credential artifact: %w", err)
	}
	return png, nil
}

// ToDataURI wraps rendered PNG bytes as a base64 data URI for JSON transport.
func ToDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
