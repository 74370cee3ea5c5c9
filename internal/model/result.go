package model

// Result is the uniform response envelope written by the envelope middleware
type Result[T any] struct {
	Code int    `json:"code"`           // 200 on success, HTTP-like status otherwise
	Msg  string `json:"msg"`            // "success" or a failure description
	Data T      `json:"data,omitempty"` // Handler payload
}

const (
	CodeOK   = 200
	CodeFail = 500

	MsgOK   = "success"
	MsgFail = "failure"
)

// Ok wraps data into a successful result
func Ok[T any](data T) Result[T] {
	return Result[T]{
		Code: CodeOK,
		Msg:  MsgOK,
		Data: data,
	}
}

// Fail builds a failed result carrying msg
func Fail(msg string) Result[any] {
	if msg == "" {
		msg = MsgFail
	}
	return Result[any]{
		Code: CodeFail,
		Msg:  msg,
	}
}

// FailWithCode builds a failed result with an explicit code
func FailWithCode(code int, msg string) Result[any] {
	r := Fail(msg)
	r.Code = code
	return r
}

// IsOK reports whether the result carries the success code
func (r Result[T]) IsOK() bool {
	return r.Code == CodeOK
}
