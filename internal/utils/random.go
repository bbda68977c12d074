package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const numberBytes = "0123456789"

func GenerateRandomNumericString(length int) (string, error) {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(numberBytes)))

	for i := range result {
		num, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			return "", fmt.Errorf("failed to read random digits: %w", err)
		}
		result[i] = numberBytes[num.Int64()]
	}

	return string(result), nil
}

// GenerateOTP returns the four digit pickup code.
func GenerateOTP() (string, error) {
	return GenerateRandomNumericString(OTPLength)
}

// GenerateSecureToken returns n random bytes, hex encoded.
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the one-way digest stored in place of a refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateReceiptNumber returns RCP-YYYYMMDD-XXXXXXXXXXXX.
func GenerateReceiptNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("RCP-%s-%s", at.UTC().Format("20060102"), suffix)
}

func GenerateTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.NewString())
}
