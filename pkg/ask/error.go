package ask

// ErrorResponse is the body the server returns alongside a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
