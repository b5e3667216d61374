package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeWordCloud      QuestionType = "word_cloud"
	TypeOpenEnded      QuestionType = "open_ended"
	TypeRating         QuestionType = "rating"
)

const (
	MaxOptions      = 20
	MaxAnswerLen    = 500
	MinRating       = 1
	MaxRating       = 10
	MaxTimeLimitSec = 24 * 60 * 60
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeWordCloud, TypeOpenEnded, TypeRating:
		return true
	}
	return false
}

type Question struct {
	ID        string       `db:"id"`
	SessionID string       `db:"session_id"`
	Title     string       `db:"title"`
	Type      QuestionType `db:"type"`
	Options   []string     `db:"options"`
	SortOrder int          `db:"sort_order"`
	TimeLimit int          `db:"time_limit"` // секунды, 0 - без лимита
	ImageRef  *string      `db:"image_ref"`  // непрозрачная ссылка на blob
	CreatedAt time.Time    `db:"created_at"`
}

// QuestionInput - поля, которые задаёт ведущий при создании/правке.
type QuestionInput struct {
	Title     string
	Type      QuestionType
	Options   []string
	SortOrder *int
	TimeLimit int
	ImageRef  *string
}

// Normalize валидирует ввод: options обязательны только для multiple_choice.
func (in QuestionInput) Normalize() (QuestionInput, error) {
	out := in
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return out, err
	}
	out.Title = title

	if !in.Type.Valid() {
		return out, InvalidInput("unknown question type")
	}
	if in.TimeLimit < 0 || in.TimeLimit > MaxTimeLimitSec {
		return out, InvalidInput("timeLimit out of range")
	}

	if in.Type == TypeMultipleChoice {
		opts := make([]string, 0, len(in.Options))
		seen := make(map[string]struct{}, len(in.Options))
		for _, o := range in.Options {
			o = strings.TrimSpace(o)
			if o == "" {
				return out, InvalidInput("options must not be empty")
			}
			if _, dup := seen[o]; dup {
				return out, InvalidInput("options must be unique")
			}
			seen[o] = struct{}{}
			opts = append(opts, o)
		}
		if len(opts) < 2 {
			return out, InvalidInput("multiple_choice needs at least two options")
		}
		if len(opts) > MaxOptions {
			return out, InvalidInput("too many options")
		}
		out.Options = opts
	} else {
		if len(in.Options) > 0 {
			return out, InvalidInput("options are only allowed for multiple_choice")
		}
		out.Options = nil
	}

	if in.ImageRef != nil {
		ref := strings.TrimSpace(*in.ImageRef)
		if ref == "" {
			out.ImageRef = nil
		} else {
			out.ImageRef = &ref
		}
	}
	return out, nil
}

// NormalizeAnswer приводит ответ к хранимому виду и проверяет его по типу вопроса.
func (q *Question) NormalizeAnswer(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", InvalidInput("answer is required")
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLen {
		return "", InvalidInput("answer is too long")
	}

	switch q.Type {
	case TypeMultipleChoice:
		for _, o := range q.Options {
			if o == answer {
				return answer, nil
			}
		}
		return "", InvalidInput("answer is not one of the options")
	case TypeRating:
		n, err := strconv.Atoi(answer)
		if err != nil || n < MinRating || n > MaxRating {
			return "", InvalidInput("rating must be an integer between 1 and 10")
		}
		return strconv.Itoa(n), nil
	}
	return answer, nil
}
