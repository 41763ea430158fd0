package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// GenerateSessionToken returns a short URL-safe token identifying an online session.
// Uniqueness against existing sessions is the caller's responsibility.
func GenerateSessionToken() (string, error) {
	b, err := GenerateRandomBytes(constants.SessionTokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateOTP returns a six digit one-time code for joining a LAN session
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(constants.OTPMax-constants.OTPMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+constants.OTPMin, 10), nil
}
