package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"theatre-ticketing/internal/models"

	"github.com/skip2/go-qrcode"
)

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR renders a scannable code holding the encrypted
// seat assignment, for tickets of paid reservations only.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket) ([]byte, error) {
	payload := struct {
		TicketID      int64 `json:"ticket_id"`
		ReservationID int64 `json:"reservation_id"`
		PerformanceID int64 `json:"performance_id"`
		ZoneID        int64 `json:"zone_id"`
		Row           int   `json:"row"`
		Seat          int   `json:"seat"`
	}{
		TicketID:      ticket.ID,
		ReservationID: ticket.ReservationID,
		PerformanceID: ticket.PerformanceID,
		ZoneID:        ticket.ZoneID,
		Row:           ticket.Row,
		Seat:          ticket.Seat,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
