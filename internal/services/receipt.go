package services

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
)

// ReceiptClaims is what a receipt vouches for: the outcome of one submission.
type ReceiptClaims struct {
	SubmissionID string              `json:"sid"`
	GlobalColor  questionnaire.Color `json:"color"`
	Percentage   float64             `json:"pct"`
	jwt.RegisteredClaims
}

// ReceiptSigner issues and checks HS256 receipts so a patient can show a
// result that the clinic can verify was produced by this service.
type ReceiptSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewReceiptSigner(secret []byte, ttl time.Duration) (*ReceiptSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("receipt secret required")
	}
	return &ReceiptSigner{secret: secret, ttl: ttl, now: time.Now}, nil
}

func (r *ReceiptSigner) Sign(sub *Submission) (string, error) {
	if sub == nil {
		return "", errors.New("nil submission")
	}
	now := r.now()
	claims := ReceiptClaims{
		SubmissionID: sub.ID,
		GlobalColor:  sub.Report.Summary.GlobalColor,
		Percentage:   sub.Report.Summary.Percentage,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sub.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if r.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(r.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

// Verify returns the claims of a valid receipt or ErrInvalidReceipt.
func (r *ReceiptSigner) Verify(tok string) (*ReceiptClaims, error) {
	if tok == "" {
		return nil, ErrInvalidReceipt
	}
	t, err := jwt.ParseWithClaims(tok, &ReceiptClaims{}, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(r.now))
	if err != nil {
		return nil, ErrInvalidReceipt
	}
	if c, ok := t.Claims.(*ReceiptClaims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrInvalidReceipt
}
