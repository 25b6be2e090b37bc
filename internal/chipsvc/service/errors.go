package service

// ChipError is a domain failure returned to callers; compare with errors.Is.
type ChipError string

func (e ChipError) Error() string { return string(e) }

const (
	ErrChipNotRecognized ChipError = "chip not recognized"
	ErrChipNotFound      ChipError = "chip not found"
	ErrAlreadyClaimed    ChipError = "chip already claimed"
	ErrUnauthenticated   ChipError = "authentication required"
	ErrForbidden         ChipError = "not allowed to manage this chip"
	ErrInvalidInput      ChipError = "invalid input"
)
