package domain

import "time"

// Response - текущий ответ участника на вопрос. На пару (question, participant)
// существует не больше одной записи; повторная отправка перезаписывает её.
type Response struct {
	ID            string    `db:"id"`
	QuestionID    string    `db:"question_id"`
	SessionID     string    `db:"session_id"`
	ParticipantID string    `db:"participant_id"`
	Answer        string    `db:"answer"`
	AnsweredAt    time.Time `db:"answered_at"`
}

// Submission - вход для записи ответа. Answer - как прислал участник,
// нормализует его ApplySubmission.
type Submission struct {
	ResponseID    string // id для новой записи; при перезаписи сохраняется старый
	SessionID     string
	QuestionID    string
	ParticipantID string
	Answer        string
	Now           time.Time
}

// Snapshot - согласованный срез сессии для аналитики.
type Snapshot struct {
	Session      Session
	Questions    []Question    // sort_order, created_at, id
	Participants []Participant // joined_at, id
	Responses    []Response    // answered_at, id
}
