package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("inline token", func(t *testing.T) {
		creds, err := Load("abc123", "")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if creds.Token != "abc123" {
			t.Errorf("Token = %q, want %q", creds.Token, "abc123")
		}
	})

	t.Run("token from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("  file-token\n"), 0600); err != nil {
			t.Fatal(err)
		}

		creds, err := Load("", path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if creds.Token != "file-token" {
			t.Errorf("Token = %q, want %q", creds.Token, "file-token")
		}
	})

	t.Run("inline wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("file-token"), 0600); err != nil {
			t.Fatal(err)
		}

		creds, err := Load("inline", path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if creds.Token != "inline" {
			t.Errorf("Token = %q, want %q", creds.Token, "inline")
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := Load("", "")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("whitespace only token", func(t *testing.T) {
		_, err := Load("   \n", "")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := Load("", filepath.Join(t.TempDir(), "missing"))
		if err == nil {
			t.Error("expected error for missing token file")
		}
	})
}

func TestCredentials_Header(t *testing.T) {
	creds := &Credentials{Token: "tok"}
	if got := creds.Header(); got != "Bearer tok" {
		t.Errorf("Header() = %q, want %q", got, "Bearer tok")
	}
	if got := creds.QueryParam(); got != "tok" {
		t.Errorf("QueryParam() = %q, want %q", got, "tok")
	}
}
