// Package uploads issues short-lived signed URLs for image uploads and stores
// the uploaded blobs on disk.
package uploads

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/pollchat/internal/wire"
)

// DefaultTTL is how long a signed upload URL stays valid.
const DefaultTTL = 60 * time.Second

var (
	keyPattern = regexp.MustCompile(`^uploads/\d{4}-\d{2}-\d{2}/[0-9a-f-]{36}\.[a-z0-9]{1,10}$`)
	extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

	ErrBadSignature = fmt.Errorf("%w: bad upload signature", wire.ErrForbidden)
	ErrExpired      = fmt.Errorf("%w: upload url expired", wire.ErrForbidden)
)

// Signer creates and verifies upload URLs.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewSigner returns a signer whose URLs point at baseURL (scheme://host[:port]).
func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Sign allocates a key for a file called name of contentType and returns it
// with a URL that accepts a single PUT of that content type until the TTL ends.
// Only image content types are accepted.
func (s *Signer) Sign(name, contentType string) (*wire.UploadTicket, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: only image uploads are allowed", wire.ErrInvalidArgument)
	}
	now := s.now().UTC()
	key := fmt.Sprintf("uploads/%s/%s.%s", now.Format(time.DateOnly), uuid.NewString(), extension(name))
	expires := now.Add(s.ttl).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("type", contentType)
	q.Set("sig", s.signature(key, contentType, expires))
	return &wire.UploadTicket{
		Key:       key,
		UploadURL: s.baseURL + "/" + key + "?" + q.Encode(),
	}, nil
}

// Verify checks a signed upload request for key.
func (s *Signer) Verify(key, contentType, expires, sig string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: malformed upload key", wire.ErrInvalidArgument)
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := s.signature(key, contentType, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

func (s *Signer) signature(key, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "PUT\n%s\n%s\n%d", key, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidKey reports whether key has the shape Sign produces.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "bin"
	}
	ext := strings.ToLower(name[i+1:])
	if !extPattern.MatchString(ext) {
		return "bin"
	}
	return ext
}
