// Package adaptive seals stored values with an AEAD cipher.
//
// AES-256-GCM is chosen on platforms where Go's crypto/aes is hardware
// accelerated, ChaCha20-Poly1305 elsewhere. A sealed value is the random
// nonce followed by the ciphertext and tag. The caller passes the storage
// key as additional data so a value cannot be replayed under another key.
package adaptive
