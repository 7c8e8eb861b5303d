package httpdto

// Response is the envelope every REST endpoint answers with. Error
// responses carry a stable machine-readable code next to the message.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{Success: false, Error: err, Code: code}
}
