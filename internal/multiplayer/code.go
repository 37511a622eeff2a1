package multiplayer

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// CodeLength is the number of characters in a canonical room code.
const CodeLength = 6

// NormalizeCode folds user input into a canonical room code: separators
// and other non-alphanumerics are stripped, letters upper-cased and the
// result cut to CodeLength characters.
func NormalizeCode(raw string) RoomCode {
	var b strings.Builder
	for _, r := range raw {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == CodeLength {
			break
		}
	}
	return RoomCode(b.String())
}

// GenerateCode creates a random 6-character uppercase alphanumeric code.
func GenerateCode() RoomCode {
	b := make([]byte, 4) // 32 bits, base32 encodes to 8 chars, we take 6
	if _, err := rand.Read(b); err != nil {
		return RoomCode(fmt.Sprintf("%06X", time.Now().UnixNano()&0xFFFFFF))
	}
	return RoomCode(base32.StdEncoding.EncodeToString(b)[:CodeLength])
}
