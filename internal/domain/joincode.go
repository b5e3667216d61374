package domain

import (
	"crypto/rand"
	"strings"
)

// Без 0/O, 1/I/L - код диктуют голосом и набирают с телефона.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const JoinCodeLen = 6

func NewJoinCode() (string, error) {
	b := make([]byte, JoinCodeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b), nil
}

// NormalizeJoinCode приводит введённый код к каноническому виду.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
