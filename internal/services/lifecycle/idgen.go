package lifecycle

import (
	"crypto/rand"
	"math/big"
)

const tempIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTempID — внешний корреляционный ключ черновика,
// "TMP-" + 8 символов. Уникальность обеспечивает индекс в БД.
func NewTempID() string {
	b := make([]byte, 8)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(tempIDAlphabet))))
		b[i] = tempIDAlphabet[n.Int64()]
	}
	return "TMP-" + string(b)
}

// NewTrackingNumber — "CRJ-" + 9 десятичных цифр, первая ненулевая.
// Коллизию ловит уникальный индекс; генерация не повторяется внутри.
func NewTrackingNumber() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(900_000_000))
	num := n.Int64() + 100_000_000
	digits := make([]byte, 0, 13)
	digits = append(digits, 'C', 'R', 'J', '-')
	for div := int64(100_000_000); div > 0; div /= 10 {
		digits = append(digits, byte('0'+(num/div)%10))
	}
	return string(digits)
}
