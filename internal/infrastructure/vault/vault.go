// Package vault implementa el cifrado en reposo de certificados y contraseñas
// con cifrado de sobre: la llave AES-256 se deriva de la passphrase maestra
// con SHA-256 (passphrases de cualquier longitud quedan normalizadas al tamaño
// de llave del cifrador) y cada cifrado usa un nonce aleatorio fresco.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// NonceSize longitud fija del nonce GCM antepuesto al ciphertext.
const NonceSize = 12

// Vault cifra y descifra blobs con AES-256-GCM. Formato: nonce(12)||ciphertext.
type Vault struct {
	aead cipher.AEAD
}

// New construye el vault derivando la llave de la passphrase maestra.
func New(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("vault: passphrase maestra vacía")
	}
	key := sha256.Sum256([]byte(masterKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("vault: crear cifrador: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: crear GCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt cifra plaintext y devuelve nonce||ciphertext. Cada llamada genera un
// nonce aleatorio nuevo, por lo que cifrar dos veces el mismo contenido
// produce blobs distintos.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: generar nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt separa el nonce de longitud fija y descifra. Falla cerrado: ante
// cualquier fallo de autenticación retorna ErrCorruptedOrWrongKey y nunca
// texto plano parcial o alterado.
func (v *Vault) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, fmt.Errorf("%w: blob demasiado corto", domain.ErrCorruptedOrWrongKey)
	}
	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptedOrWrongKey, err)
	}
	return plaintext, nil
}

// EncryptToString cifra y codifica en Base64 para almacenar en columnas de texto.
func (v *Vault) EncryptToString(plaintext []byte) (string, error) {
	blob, err := v.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptFromString decodifica Base64 y descifra.
func (v *Vault) DecryptFromString(encoded string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: Base64 inválido", domain.ErrCorruptedOrWrongKey)
	}
	return v.Decrypt(blob)
}

// Wipe sobreescribe el slice con ceros. Para material sensible descifrado cuyo
// ciclo de vida debe terminar con la operación que lo usó.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
