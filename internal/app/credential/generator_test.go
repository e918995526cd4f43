package credential

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pinPattern = regexp.MustCompile(`^[1-9]\d{5}$`)

// -- GeneratePIN tests --

func TestGeneratePIN_Range(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		pin, err := g.GeneratePIN()
		require.NoError(t, err)
		assert.Regexp(t, pinPattern, pin)
		seen[pin] = struct{}{}
	}

	assert.Greater(t, len(seen), 900, "pins should rarely collide")
}

func TestGeneratePIN_LowerBound(t *testing.T) {
	g := NewGenerator(WithRand(bytes.NewReader(make([]byte, 64))))

	pin, err := g.GeneratePIN()
	require.NoError(t, err)
	assert.Equal(t, "100000", pin)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

func TestGeneratePIN_EntropyError(t *testing.T) {
	g := NewGenerator(WithRand(failingReader{}))

	pin, err := g.GeneratePIN()
	assert.Error(t, err)
	assert.Empty(t, pin)
}

// -- GenerateToken tests --

func TestGenerateToken_Deterministic(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateToken("tx1", "123456", 42)
	b := g.GenerateToken("tx1", "123456", 42)

	assert.Equal(t, a, b)
	assert.Len(t, string(a), 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, string(a))
}

func TestGenerateToken_DistinctPerTransaction(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateToken("tx1", "123456", 42)
	b := g.GenerateToken("tx2", "123456", 42)
	c := g.GenerateToken("tx1", "123456", 43)

	assert.NotEqual(t, a, b, "same pin, different transaction")
	assert.NotEqual(t, a, c, "same pin, different issue time")
}

func TestToken_ShortFingerprint(t *testing.T) {
	tok := NewGenerator().GenerateToken("tx1", "123456", 42)

	fp := tok.ShortFingerprint()
	assert.Len(t, fp, 16)
	assert.Equal(t, string(tok)[:16], fp)
	assert.Equal(t, "abc", Token("abc").ShortFingerprint())
}
