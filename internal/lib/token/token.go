package token

import (
	"fmt"
	"io"
	"strconv"

	"sessiond/internal/lib/hashing"
)

const keySize = 8

// Generator mints opaque credential tokens. The randomness source is
// injected so tests can substitute a deterministic reader; production wiring
// passes crypto/rand.Reader.
type Generator struct {
	rnd io.Reader
}

func NewGenerator(rnd io.Reader) *Generator {
	return &Generator{rnd: rnd}
}

// Generate derives a token by hashing an 8-byte random key appended to the
// decimal account id. Collision resistance rests on the key's entropy and
// the digest's output space; no uniqueness check is made against stored
// tokens.
func (g *Generator) Generate(accountID int64) (string, error) {
	const op = "token.Generate"

	key := make([]byte, keySize)
	if _, err := io.ReadFull(g.rnd, key); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	source := append([]byte(strconv.FormatInt(accountID, 10)), key...)

	return hashing.Sum(source), nil
}
