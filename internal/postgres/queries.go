package postgres

const sessionColumns = `id, join_code, presenter_id, title, status, active_question_id,
	question_started_at, max_participants, created_at, updated_at, ended_at`

const questionColumns = `id, session_id, title, type, options, sort_order, time_limit, image_ref, created_at`

const participantColumns = `id, session_id, unique_id, name, joined_at`

const responseColumns = `id, question_id, session_id, participant_id, answer, answered_at`

const (
	queryInsertSession = `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	querySessionByID   = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	querySessionByCode = `SELECT ` + sessionColumns + ` FROM sessions WHERE join_code = $1`

	querySessionsPresenter = `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE presenter_id = $1
		ORDER BY created_at DESC, id DESC`

	// Эксклюзивная блокировка: мутации одной сессии выстраиваются в очередь.
	queryLockSession = querySessionByID + ` FOR UPDATE`

	// Разделяемая: ответы не ждут друг друга, но ждут activate/end.
	queryShareSession = querySessionByID + ` FOR SHARE`

	queryUpdateSession = `
		UPDATE sessions SET
			title = $2, status = $3, active_question_id = $4, question_started_at = $5,
			max_participants = $6, updated_at = $7, ended_at = $8
		WHERE id = $1`
)

const (
	queryInsertQuestion = `
		INSERT INTO questions (` + questionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	queryQuestionByID      = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	queryQuestionSessionID = `SELECT session_id FROM questions WHERE id = $1`

	queryQuestionsBySession = `
		SELECT ` + questionColumns + ` FROM questions
		WHERE session_id = $1
		ORDER BY sort_order, created_at, id`

	queryQuestionHasResponses = `SELECT EXISTS(SELECT 1 FROM responses WHERE question_id = $1)`

	queryUpdateQuestion = `
		UPDATE questions SET
			title = $2, type = $3, options = $4, sort_order = $5, time_limit = $6, image_ref = $7
		WHERE id = $1`

	querySetSortOrder    = `UPDATE questions SET sort_order = $3 WHERE id = $1 AND session_id = $2`
	queryDeleteResponses = `DELETE FROM responses WHERE question_id = $1`
	queryDeleteQuestion  = `DELETE FROM questions WHERE id = $1`
)

const (
	queryInsertParticipant = `
		INSERT INTO participants (` + participantColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	queryParticipantByID = `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`

	queryParticipantByDevice = `
		SELECT ` + participantColumns + ` FROM participants
		WHERE session_id = $1 AND unique_id = $2`

	queryCountParticipants = `SELECT COUNT(*) FROM participants WHERE session_id = $1`
	queryRenameParticipant = `UPDATE participants SET name = $2 WHERE id = $1`

	queryParticipantsBySession = `
		SELECT ` + participantColumns + ` FROM participants
		WHERE session_id = $1
		ORDER BY joined_at, id`
)

const (
	queryResponseByKey = `
		SELECT ` + responseColumns + ` FROM responses
		WHERE question_id = $1 AND participant_id = $2`

	// Уникальный ключ (question_id, participant_id) закрывает гонку двух
	// одновременных первых ответов: второй превращается в UPDATE.
	queryUpsertResponse = `
		INSERT INTO responses (` + responseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (question_id, participant_id)
		DO UPDATE SET answer = EXCLUDED.answer, answered_at = EXCLUDED.answered_at
		RETURNING ` + responseColumns

	queryResponsesByQuestion = `
		SELECT ` + responseColumns + ` FROM responses
		WHERE question_id = $1
		ORDER BY answered_at, id`

	queryResponsesBySession = `
		SELECT ` + responseColumns + ` FROM responses
		WHERE session_id = $1
		ORDER BY answered_at, id`
)
