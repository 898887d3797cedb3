package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func writePEM(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestSigner_Sign(t *testing.T) {
	key := testKey(t)
	s, err := NewSigner("test-key-id", key)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	h, err := s.Sign("GET", "/trade-api/v2/markets")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if h.Get(HeaderKey) != "test-key-id" {
		t.Errorf("%s = %q, want %q", HeaderKey, h.Get(HeaderKey), "test-key-id")
	}
	if h.Get(HeaderTimestamp) != "1700000000123" {
		t.Errorf("%s = %q, want %q", HeaderTimestamp, h.Get(HeaderTimestamp), "1700000000123")
	}

	sig, err := base64.StdEncoding.DecodeString(h.Get(HeaderSignature))
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}
	hashed := sha256.Sum256([]byte("1700000000123GET/trade-api/v2/markets"))
	if err := rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hashed[:], sig,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestNewSigner_Validation(t *testing.T) {
	if _, err := NewSigner("", testKey(t)); err == nil {
		t.Error("expected error for missing key ID")
	}
	if _, err := NewSigner("id", nil); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestLoadPrivateKey_PKCS8(t *testing.T) {
	key := testKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal PKCS#8: %v", err)
	}

	loaded, err := LoadPrivateKey(writePEM(t, "PRIVATE KEY", der))
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_PKCS1(t *testing.T) {
	key := testKey(t)

	loaded, err := LoadPrivateKey(writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)))
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 {
		t.Error("loaded key does not match original")
	}
}

func TestLoadPrivateKey_NotRSA(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ec key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(ec)
	if err != nil {
		t.Fatalf("failed to marshal PKCS#8: %v", err)
	}

	if _, err := LoadPrivateKey(writePEM(t, "PRIVATE KEY", der)); err == nil {
		t.Error("expected error for non-RSA key")
	}
}

func TestLoadPrivateKey_Errors(t *testing.T) {
	if _, err := LoadPrivateKey("/nonexistent/path/to/key.pem"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	path := filepath.Join(t.TempDir(), "invalid.pem")
	if err := os.WriteFile(path, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := LoadPrivateKey(path); err == nil {
		t.Error("expected error for invalid PEM")
	}
}

func TestLoadSigner(t *testing.T) {
	der, _ := x509.MarshalPKCS8PrivateKey(testKey(t))
	path := writePEM(t, "PRIVATE KEY", der)

	s, err := LoadSigner("my-key-id", path)
	if err != nil {
		t.Fatalf("LoadSigner failed: %v", err)
	}
	if s.keyID != "my-key-id" {
		t.Errorf("keyID = %q, want %q", s.keyID, "my-key-id")
	}

	if _, err := LoadSigner("", path); err == nil {
		t.Error("expected error for missing key ID")
	}
	if _, err := LoadSigner("key-id", ""); err == nil {
		t.Error("expected error for missing path")
	}
}
