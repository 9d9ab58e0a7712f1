package vault_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/vault"
)

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("passphrase-de-prueba-cualquier-longitud")
	require.NoError(t, err)
	return v
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)

	cases := [][]byte{
		[]byte{},
		[]byte("a"),
		[]byte("contenido de certificado PEM de prueba"),
		bytes.Repeat([]byte{0xAB}, 64*1024), // bundle grande (p12 típico ~5 KB, margen amplio)
	}
	for _, plain := range cases {
		blob, err := v.Encrypt(plain)
		require.NoError(t, err)
		got, err := v.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncrypt_NonceFresco(t *testing.T) {
	v := newTestVault(t)
	b1, err := v.Encrypt([]byte("mismo contenido"))
	require.NoError(t, err)
	b2, err := v.Encrypt([]byte("mismo contenido"))
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2, "cada cifrado debe usar un nonce aleatorio nuevo")
}

// TestDecrypt_DetectaManipulacion: voltear cualquier bit del blob debe producir
// ErrCorruptedOrWrongKey, nunca texto plano alterado.
func TestDecrypt_DetectaManipulacion(t *testing.T) {
	v := newTestVault(t)
	plain := make([]byte, 256)
	_, err := rand.Read(plain)
	require.NoError(t, err)

	blob, err := v.Encrypt(plain)
	require.NoError(t, err)

	for i := 0; i < len(blob); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(blob))
			copy(tampered, blob)
			tampered[i] ^= 1 << bit
			_, err := v.Decrypt(tampered)
			require.ErrorIs(t, err, domain.ErrCorruptedOrWrongKey,
				"byte %d bit %d alterado debe fallar cerrado", i, bit)
		}
	}
}

func TestDecrypt_LlaveIncorrecta(t *testing.T) {
	v1 := newTestVault(t)
	v2, err := vault.New("otra-passphrase")
	require.NoError(t, err)

	blob, err := v1.Encrypt([]byte("secreto"))
	require.NoError(t, err)
	_, err = v2.Decrypt(blob)
	assert.ErrorIs(t, err, domain.ErrCorruptedOrWrongKey)
}

func TestDecrypt_BlobCorto(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Decrypt([]byte{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrCorruptedOrWrongKey)
}

func TestStringRoundTrip(t *testing.T) {
	v := newTestVault(t)
	s, err := v.EncryptToString([]byte("contraseña del p12"))
	require.NoError(t, err)
	got, err := v.DecryptFromString(s)
	require.NoError(t, err)
	assert.Equal(t, []byte("contraseña del p12"), got)

	_, err = v.DecryptFromString("$$$no-es-base64$$$")
	assert.ErrorIs(t, err, domain.ErrCorruptedOrWrongKey)
}

func TestNew_PassphraseVacia(t *testing.T) {
	_, err := vault.New("")
	assert.Error(t, err)
}

func TestWipe(t *testing.T) {
	b := []byte("material sensible")
	vault.Wipe(b)
	assert.Equal(t, make([]byte, len(b)), b)
}
