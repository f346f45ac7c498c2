// Package errcode provides layered error codes shared by the settings packages.
//
// A code is MMBBBB: a two digit module code followed by a four digit business
// code, e.g. 210002 for settings (21) source not configured (0002).
package errcode

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LayeredError is an error with a stable numeric code. Derived errors
// (WithMsg, Wrap, ...) are copies and keep the code of their sentinel.
type LayeredError struct {
	module string
	code   int
	msgKey string // i18n key, e.g. error.settings.source_not_configured
	msg    string
	data   map[string]any
	cause  error
}

// New creates a sentinel. moduleCode is 10-99, businessCode 1-9999.
func New(moduleCode, businessCode int, module, msgKey, msg string) *LayeredError {
	return &LayeredError{
		module: module,
		code:   moduleCode*10000 + businessCode,
		msgKey: msgKey,
		msg:    msg,
	}
}

func (e *LayeredError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *LayeredError) Code() int      { return e.code }
func (e *LayeredError) Module() string { return e.module }
func (e *LayeredError) MsgKey() string { return e.msgKey }

// Message is the message without the cause
func (e *LayeredError) Message() string { return e.msg }

// Data returns a copy of the attached context values
func (e *LayeredError) Data() map[string]any {
	out := make(map[string]any, len(e.data))
	for k, v := range e.data {
		out[k] = v
	}
	return out
}

func (e *LayeredError) Unwrap() error { return e.cause }

// Is matches any layered error with the same code
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	return ok && t.code == e.code
}

// WithMsg returns a copy with another message
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	c := e.clone()
	c.msg = msg
	return c
}

// WithMsgf is WithMsg with formatting
func (e *LayeredError) WithMsgf(format string, args ...any) *LayeredError {
	return e.WithMsg(fmt.Sprintf(format, args...))
}

// WithData returns a copy carrying key=value
func (e *LayeredError) WithData(key string, value any) *LayeredError {
	c := e.clone()
	c.data = e.Data()
	c.data[key] = value
	return c
}

// Wrap returns a copy caused by cause; a nil cause returns e itself
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	c := e.clone()
	c.cause = cause
	return c
}

// Wrapf wraps cause and replaces the message
func (e *LayeredError) Wrapf(cause error, format string, args ...any) *LayeredError {
	c := e.WithMsgf(format, args...)
	c.cause = cause
	return c
}

func (e *LayeredError) clone() *LayeredError {
	c := *e
	return &c
}

// MarshalLogObject writes code, module and data next to the message
func (e *LayeredError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return logObject{le: e, msg: e.Error()}.MarshalLogObject(enc)
}

// Field logs err under "error". If a layered error is in the chain its code
// and data are logged with the full message of err.
func Field(err error) zap.Field {
	var le *LayeredError
	if errors.As(err, &le) {
		return zap.Object("error", logObject{le: le, msg: err.Error()})
	}
	return zap.Error(err)
}

type logObject struct {
	le  *LayeredError
	msg string
}

func (o logObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("code", o.le.code)
	enc.AddString("module", o.le.module)
	enc.AddString("msg", o.msg)
	for k, v := range o.le.data {
		if err := enc.AddReflected(k, v); err != nil {
			return err
		}
	}
	return nil
}
