package uploads

import (
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/pollchat/internal/wire"
)

func parseTicket(t *testing.T, tk *wire.UploadTicket) url.Values {
	t.Helper()
	u, err := url.Parse(tk.UploadURL)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/"+tk.Key {
		t.Errorf("url path = %q, want /%s", u.Path, tk.Key)
	}
	return u.Query()
}

func TestSignProducesVerifiableURL(t *testing.T) {
	s := NewSigner("secret", "http://localhost:8080/", 0)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tk, err := s.Sign("Photo.PNG", "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tk.Key, "uploads/2026-03-04/") || !strings.HasSuffix(tk.Key, ".png") {
		t.Errorf("key = %q", tk.Key)
	}
	if !ValidKey(tk.Key) {
		t.Errorf("key %q does not validate", tk.Key)
	}
	if !strings.HasPrefix(tk.UploadURL, "http://localhost:8080/uploads/") {
		t.Errorf("url = %q", tk.UploadURL)
	}

	q := parseTicket(t, tk)
	if err := s.Verify(tk.Key, q.Get("type"), q.Get("expires"), q.Get("sig")); err != nil {
		t.Fatalf("Verify fresh url: %v", err)
	}

	if err := s.Verify(tk.Key, "image/gif", q.Get("expires"), q.Get("sig")); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered type error = %v", err)
	}

	now = now.Add(DefaultTTL + time.Second)
	if err := s.Verify(tk.Key, q.Get("type"), q.Get("expires"), q.Get("sig")); !errors.Is(err, ErrExpired) {
		t.Errorf("expired error = %v", err)
	}
}

func TestSignRejectsNonImages(t *testing.T) {
	s := NewSigner("secret", "http://x", 0)
	if _, err := s.Sign("a.pdf", "application/pdf"); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("error = %v, want invalid argument", err)
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"a.JPG":          "jpg",
		"noext":          "bin",
		"weird.p/ng":     "bin",
		"archive.tar.gz": "gz",
	}
	for name, want := range tests {
		if got := extension(name); got != want {
			t.Errorf("extension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDirPutAndOpen(t *testing.T) {
	d := NewDir(t.TempDir(), 8)
	key := "uploads/2026-03-04/0b7e5a4e-2a1c-4c1a-9d47-6a0b1f3c2d10.png"

	if _, err := d.Put(key, strings.NewReader("tiny")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Put(key, strings.NewReader("again")); !errors.Is(err, wire.ErrForbidden) {
		t.Errorf("overwrite error = %v, want forbidden", err)
	}
	f, err := d.Open(key)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	b, _ := io.ReadAll(f)
	if string(b) != "tiny" {
		t.Errorf("content = %q", b)
	}

	big := "uploads/2026-03-04/0b7e5a4e-2a1c-4c1a-9d47-6a0b1f3c2d11.png"
	if _, err := d.Put(big, strings.NewReader("this is too large")); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("oversize error = %v", err)
	}
	if _, err := d.Open(big); !errors.Is(err, wire.ErrNotFound) {
		t.Errorf("oversize blob should be removed, got %v", err)
	}
	if _, err := d.Open("../etc/passwd"); !errors.Is(err, wire.ErrInvalidArgument) {
		t.Errorf("traversal error = %v", err)
	}
}
