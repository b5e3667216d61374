package domain

import "errors"

// Классы ошибок. Транспорт маппит их в коды ответа, конкретные ошибки
// ниже заворачивают один из классов.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrExpired          = errors.New("expired")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
)

// Error - типизированная ошибка домена: стабильный код для клиента + класс.
type Error struct {
	Code string
	Msg  string
	Kind error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, code, msg string) *Error {
	return &Error{Code: code, Msg: msg, Kind: kind}
}

var (
	ErrSessionNotFound     = newErr(ErrNotFound, "session_not_found", "session not found")
	ErrQuestionNotFound    = newErr(ErrNotFound, "question_not_found", "question not found")
	ErrParticipantNotFound = newErr(ErrNotFound, "participant_not_found", "participant not found")
	ErrResponseNotFound    = newErr(ErrNotFound, "response_not_found", "response not found")

	ErrSessionEnded         = newErr(ErrInvalidState, "session_ended", "session has ended")
	ErrSessionNotActive     = newErr(ErrInvalidState, "session_not_active", "session is not active")
	ErrQuestionNotActive    = newErr(ErrInvalidState, "question_not_active", "question is not active")
	ErrQuestionHasResponses = newErr(ErrInvalidState, "question_has_responses", "question already has responses")

	ErrSessionFull = newErr(ErrCapacityExceeded, "session_full", "session is full")
	ErrTimeExpired = newErr(ErrExpired, "time_expired", "time limit for the question has expired")

	ErrQuestionNotInSession = newErr(ErrInvalidReference, "invalid_reference", "question does not belong to the session")

	ErrNotSessionOwner = newErr(ErrForbidden, "forbidden", "session belongs to another presenter")
	ErrJoinCodeTaken   = newErr(ErrConflict, "join_code_taken", "join code already in use")
)

// InvalidInput - ошибка валидации с конкретным сообщением.
func InvalidInput(msg string) *Error {
	return newErr(ErrInvalidInput, "invalid_input", msg)
}

// Code возвращает код доменной ошибки или "internal".
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
