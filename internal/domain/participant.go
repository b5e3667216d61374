package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLen     = 64
	MaxUniqueIDLen = 128
)

type Participant struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	UniqueID  string    `db:"unique_id"` // отпечаток устройства, уникален в рамках сессии
	Name      *string   `db:"name"`
	JoinedAt  time.Time `db:"joined_at"`
}

// NormalizeName обрезает пробелы и длину; пустое имя - nil.
func NormalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	if utf8.RuneCountInString(n) > MaxNameLen {
		n = string([]rune(n)[:MaxNameLen])
	}
	return &n
}

func NormalizeUniqueID(uniqueID string) (string, error) {
	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		return "", InvalidInput("uniqueId is required")
	}
	if len(uniqueID) > MaxUniqueIDLen {
		return "", InvalidInput("uniqueId is too long")
	}
	return uniqueID, nil
}

// Rename применяет новое имя при повторном входе. Возвращает true, если имя изменилось.
func (p *Participant) Rename(name *string) bool {
	if name == nil {
		return false
	}
	if p.Name != nil && *p.Name == *name {
		return false
	}
	n := *name
	p.Name = &n
	return true
}

func (p *Participant) DisplayName() string {
	if p.Name == nil {
		return ""
	}
	return *p.Name
}
