package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadaxle/leadaxle/app/models"
)

const testKey = "abcdefghijklmnopqrstuvwxyz123456"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testKey)

	sealed, err := Encrypt(`{"token": "abc"}`)
	require.NoError(t, err)
	assert.NotEqual(t, `{"token": "abc"}`, sealed)

	plain, err := Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"token": "abc"}`, plain)
}

func TestEncryptEmptyIsEmpty(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testKey)

	sealed, err := Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testKey)

	_, err := Decrypt("YWJj") // 3 bytes, shorter than one AES block
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestEncryptFailsWithoutKey(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", "")

	_, err := Encrypt("secret")
	assert.Error(t, err)
}

func TestAuthHeaders(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testKey)

	seal := func(doc string) string {
		t.Helper()
		sealed, err := Encrypt(doc)
		require.NoError(t, err)
		return sealed
	}

	tests := []struct {
		name  string
		buyer *models.Buyer
		want  map[string]string
	}{
		{
			name:  "none yields no headers",
			buyer: &models.Buyer{AuthType: models.AUTH_TYPE_NONE},
			want:  map[string]string{},
		},
		{
			name: "api key with custom header",
			buyer: &models.Buyer{
				AuthType:        models.AUTH_TYPE_API_KEY,
				AuthCredentials: seal(`{"header": "X-Partner-Key", "key": "k1"}`),
			},
			want: map[string]string{"X-Partner-Key": "k1"},
		},
		{
			name: "api key defaults the header name",
			buyer: &models.Buyer{
				AuthType:        models.AUTH_TYPE_API_KEY,
				AuthCredentials: seal(`{"key": "k2"}`),
			},
			want: map[string]string{"X-Api-Key": "k2"},
		},
		{
			name: "bearer",
			buyer: &models.Buyer{
				AuthType:        models.AUTH_TYPE_BEARER,
				AuthCredentials: seal(`{"token": "tok"}`),
			},
			want: map[string]string{"Authorization": "Bearer tok"},
		},
		{
			name: "basic",
			buyer: &models.Buyer{
				AuthType:        models.AUTH_TYPE_BASIC,
				AuthCredentials: seal(`{"username": "u", "password": "p"}`),
			},
			// base64("u:p")
			want: map[string]string{"Authorization": "Basic dTpw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := AuthHeaders(tt.buyer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, headers)
		})
	}
}

func TestAuthHeadersRejectsUnknownType(t *testing.T) {
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", testKey)

	sealed, err := Encrypt(`{"key": "k"}`)
	require.NoError(t, err)

	_, err = AuthHeaders(&models.Buyer{AuthType: "oauth2", AuthCredentials: sealed})
	assert.Error(t, err)
}
