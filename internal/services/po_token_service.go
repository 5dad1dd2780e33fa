package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// POTokenService выпускает и проверяет токены подтверждения заказов
// поставщиком. Токен: base64("{poId}:{expiryUnix}:{hexHMAC}"), где подпись
// HMAC-SHA256 считается от строки "{poId}:{expiryUnix}".
type POTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewPOTokenService создает сервис токенов подтверждения
func NewPOTokenService(secret string, ttl time.Duration) *POTokenService {
	return &POTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate выпускает токен подтверждения для заказа
func (s *POTokenService) Generate(poID string) string {
	expiry := time.Now().UTC().Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s:%d", poID, expiry)
	sig := s.sign(payload)
	return base64.StdEncoding.EncodeToString([]byte(payload + ":" + sig))
}

// Validate проверяет токен и возвращает ID заказа.
// Подпись сравнивается за константное время, просроченный токен отклоняется.
func (s *POTokenService) Validate(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: токен повреждён", ErrBadRequest)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: неверный формат токена", ErrBadRequest)
	}
	poID, expiryStr, gotSig := parts[0], parts[1], parts[2]

	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: неверный срок действия токена", ErrBadRequest)
	}

	wantSig := s.sign(poID + ":" + expiryStr)
	if !hmac.Equal([]byte(gotSig), []byte(wantSig)) {
		return "", fmt.Errorf("%w: подпись токена не совпадает", ErrBadRequest)
	}

	if time.Now().UTC().Unix() > expiry {
		return "", fmt.Errorf("%w: срок действия токена истёк", ErrBadRequest)
	}

	return poID, nil
}

func (s *POTokenService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
