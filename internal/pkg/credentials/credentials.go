package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/env"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

func encryptionKey() []byte {
	return []byte(env.GetEnv("CREDENTIALS_ENCRYPTION_KEY", ""))
}

// Encrypt seals a plaintext credential document for storage.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a stored credential document. The plaintext only ever lives
// in memory.
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return "", err
	}

	decoded, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	if len(decoded) < aes.BlockSize {
		return "", ErrCiphertextTooShort
	}

	iv := decoded[:aes.BlockSize]
	decoded = decoded[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(decoded, decoded)

	return string(decoded), nil
}

// AuthHeaders decrypts a buyer's stored credentials and renders them as the
// HTTP headers its auth type requires.
func AuthHeaders(buyer *models.Buyer) (map[string]string, error) {
	headers := map[string]string{}
	if buyer.AuthType == models.AUTH_TYPE_NONE || buyer.AuthCredentials == "" {
		return headers, nil
	}

	plaintext, err := Decrypt(buyer.AuthCredentials)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials for buyer %d: %w", buyer.ID, err)
	}

	var creds map[string]string
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("parse credentials for buyer %d: %w", buyer.ID, err)
	}

	switch buyer.AuthType {
	case models.AUTH_TYPE_API_KEY:
		header := creds["header"]
		if header == "" {
			header = "X-Api-Key"
		}
		headers[header] = creds["key"]
	case models.AUTH_TYPE_BEARER:
		headers["Authorization"] = "Bearer " + creds["token"]
	case models.AUTH_TYPE_BASIC:
		userpass := creds["username"] + ":" + creds["password"]
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))
	default:
		return nil, fmt.Errorf("unsupported auth type %q for buyer %d", buyer.AuthType, buyer.ID)
	}

	return headers, nil
}
