package error

// GenericError is implemented by every typed error in this package so the
// HTTP layer can translate them without switching on concrete types.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
