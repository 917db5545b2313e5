package errs

// 错误码（对外稳定，勿复用旧码）
const (
	CodeBadRequest      = 40000
	CodeEmptyContent    = 40001
	CodeInvalidReaction = 40002
	CodeTokenInvalid    = 40101
	CodeTokenMissing    = 40102
	CodeNotParticipant  = 40301
	CodeNotSender       = 40302
	CodeNotAdmin        = 40303
	CodeRecordNotFound  = 40401
	CodeInternal        = 50000
	CodePersistence     = 50001
)

var (
	ErrBadRequest      = NewCodeError(CodeBadRequest, "bad request")
	ErrEmptyContent    = NewCodeError(CodeEmptyContent, "message content is empty")
	ErrInvalidReaction = NewCodeError(CodeInvalidReaction, "unknown reaction kind")
	ErrTokenInvalid    = NewCodeError(CodeTokenInvalid, "token invalid or expired")
	ErrTokenMissing    = NewCodeError(CodeTokenMissing, "token missing")
	ErrNotParticipant  = NewCodeError(CodeNotParticipant, "user is not a conversation participant")
	ErrNotSender       = NewCodeError(CodeNotSender, "only the sender may delete for everyone")
	ErrNotAdmin        = NewCodeError(CodeNotAdmin, "admin privilege required")
	ErrRecordNotFound  = NewCodeError(CodeRecordNotFound, "record not found")
	ErrInternal        = NewCodeError(CodeInternal, "internal server error")
	ErrPersistence     = NewCodeError(CodePersistence, "persistence failure")
)
