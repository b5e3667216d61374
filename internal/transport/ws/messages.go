package ws

import "time"

// Типы событий, которые сервер рассылает подписчикам сессии.
// Клиент по событию перезапрашивает нужные данные через HTTP.
const (
	TypeState             = "state"              // снапшот сессии при подключении
	TypeSessionUpdated    = "session_updated"    // изменились настройки сессии
	TypeQuestionActivated = "question_activated" // сменился активный вопрос
	TypeSessionEnded      = "session_ended"      // сессия завершена
	TypeParticipantJoined = "participant_joined" // новое устройство в сессии
	TypeResponseRecorded  = "response_recorded"  // ответ записан или перезаписан
	TypeQuestionsChanged  = "questions_changed"  // создание, правка, удаление, порядок
)

type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Payload   any    `json:"payload,omitempty"`
}

type StatePayload struct {
	Status            string     `json:"status"`
	ActiveQuestionID  *string    `json:"activeQuestionId"`
	QuestionStartedAt *time.Time `json:"questionStartedAt"`
	Subscribers       int        `json:"subscribers"`
}

type QuestionActivatedPayload struct {
	QuestionID string    `json:"questionId"`
	StartedAt  time.Time `json:"startedAt"`
}

type ParticipantJoinedPayload struct {
	ParticipantID string `json:"participantId"`
}

// ResponseRecordedPayload не несёт сам ответ: открытые ответы видит только ведущий.
type ResponseRecordedPayload struct {
	QuestionID    string `json:"questionId"`
	ParticipantID string `json:"participantId"`
}

type QuestionsChangedPayload struct {
	QuestionID string `json:"questionId,omitempty"`
	Action     string `json:"action"` // created|updated|deleted|reordered
}
