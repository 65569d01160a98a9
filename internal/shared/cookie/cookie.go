package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const cookieName string = "console_session"

var (
	ErrValueTooLong = errors.New("cookie value too long")
	ErrInvalidValue = errors.New("invalid cookie value")
)

// encrypt produces a tamper-proof cookie value by sealing the session ID
// together with the cookie name using AES-GCM. Binding the name into the
// plaintext prevents a cookie being replayed under a different name.
func encrypt(sessionID uuid.UUID, secret []byte, cookieName string) (*string, error) {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return nil, err
	}

	// ":" is invalid in cookie names, so it is safe as a separator.
	plaintext := fmt.Sprintf("%s:%s", cookieName, sessionID.String())

	// Seal appends the ciphertext to the nonce, giving "{nonce}{ciphertext}".
	encryptedValue := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)

	res := base64.URLEncoding.EncodeToString(encryptedValue)
	return &res, nil
}

// decrypt validates the cookie value and extracts the session ID, checking
// that the embedded cookie name matches the expected one.
func decrypt(encryptedSessionID string, secret []byte, expectedCookieName string) (*uuid.UUID, error) {
	value, err := base64.URLEncoding.DecodeString(encryptedSessionID)
	if err != nil {
		return nil, ErrInvalidValue
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(value) < nonceSize {
		return nil, ErrInvalidValue
	}

	nonce := value[:nonceSize]
	ciphertext := value[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidValue
	}

	actualName, sessionIDStr, ok := strings.Cut(string(plaintext), ":")
	if !ok {
		return nil, ErrInvalidValue
	}

	if actualName != expectedCookieName {
		return nil, ErrInvalidValue
	}

	res, err := uuid.Parse(sessionIDStr)
	if err != nil {
		return nil, ErrInvalidValue
	}
	return &res, nil
}

func GetCookie(r *http.Request, secret []byte) (*uuid.UUID, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, err
	}

	return decrypt(cookie.Value, secret, cookieName)
}

func SetCookie(w http.ResponseWriter, sessionID uuid.UUID, secret []byte) error {
	encryptedValue, err := encrypt(sessionID, secret, cookieName)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    *encryptedValue,
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
	})
	return nil
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
}
