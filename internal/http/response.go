package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status  Status `json:"status,omitempty"`
	Value   string `json:"value,omitempty"`
	Existed *bool  `json:"existed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatsResponse reports durability figures for the inspection endpoint.
type StatsResponse struct {
	Keys              int `json:"keys"`
	JournalFileLength int `json:"journal_file_length"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

func NewValueResponse(value string) Response {
	return Response{Status: StatusSuccess, Value: value}
}

func NewExistedResponse(existed bool) Response {
	return Response{Status: StatusSuccess, Existed: &existed}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
