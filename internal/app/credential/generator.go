package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

const (
	pinMin = 100000
	pinMax = 999999

	fingerprintLen = 16
)

// Token is the hex sha256 digest bound to a single transaction.
type Token string

// ShortFingerprint is the part of the token embedded in QR payloads.
func (t Token) ShortFingerprint() string {
	if len(t) < fingerprintLen {
		return string(t)
	}
	return string(t[:fingerprintLen])
}

type Generator struct {
	rand io.Reader
}

type Option func(*Generator)

// WithRand replaces crypto/rand as the entropy source.
func WithRand(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rand: rand.Reader,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// GeneratePIN returns a 6 digit PIN uniformly distributed over 100000-999999.
func (g *Generator) GeneratePIN() (string, error) {
	n, err := rand.Int(g.rand, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return "", fmt.Errorf("pin entropy: %w", err)
	}

	return strconv.FormatInt(n.Int64()+pinMin, 10), nil
}

// GenerateToken digests the transaction id, PIN and issue time. The timestamp keeps tokens
// distinct even when two transactions draw the same PIN.
func (g *Generator) GenerateToken(transactionID, pin string, issuedAtNanos int64) Token {
	sum := sha256.Sum256([]byte(transactionID + ":" + pin + ":" + strconv.FormatInt(issuedAtNanos, 10)))
	return Token(hex.EncodeToString(sum[:]))
}
