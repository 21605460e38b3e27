package storage

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// signer produces expiring HMAC signatures for read URLs served by this process.
type signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func newSigner(secret, baseURL string, ttl time.Duration) (*signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		// Without a configured secret URLs only survive until restart.
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	return &signer{secret: key, baseURL: baseURL, ttl: ttl, now: time.Now}, nil
}

func (s *signer) signature(storageID string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(storageID + "|" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *signer) readURL(storageID string) string {
	expires := s.now().Add(s.ttl).Unix()
	return fmt.Sprintf("%s/api/storage/objects/%s?expires=%d&signature=%s",
		s.baseURL, storageID, expires, s.signature(storageID, expires))
}

func (s *signer) uploadURL(ticket string) string {
	return s.baseURL + "/api/storage/upload/" + ticket
}

func (s *signer) verify(storageID string, expires int64, signature string) error {
	if s.now().Unix() > expires {
		return ErrInvalidURL
	}
	expected := s.signature(storageID, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidURL
	}
	return nil
}
