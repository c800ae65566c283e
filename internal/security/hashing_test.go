package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "secret123" {
		t.Fatalf("Hash returned %q, want a bcrypt hash", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")); err != nil {
		t.Fatalf("CompareHashAndPassword: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")); err == nil {
		t.Fatal("CompareHashAndPassword with wrong password should fail")
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != 4 {
		t.Errorf("hash cost = %d, want 4", cost)
	}
}

func TestHasher_RejectsInvalidPasswords(t *testing.T) {
	h := NewHasher(4)
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Hash empty err = %v, want ErrEmptyPassword", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash 73 bytes err = %v, want ErrPasswordTooLong", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash 72 bytes: %v", err)
	}
}

func TestNewHasher_Cost(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{12, 12},
		{0, 10},
		{-1, 10},
		{2, 4},
		{40, 31},
	}
	for _, tc := range testCases {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}
