package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// ErrorClass はプロバイダ呼び出しの失敗分類です。
type ErrorClass string

const (
	ClassPrecondition    ErrorClass = "precondition"
	ClassContentPolicy   ErrorClass = "content_policy"
	ClassMalformedOutput ErrorClass = "malformed_output"
	ClassTransient       ErrorClass = "transient"
	ClassAuth            ErrorClass = "auth"
	ClassTransport       ErrorClass = "transport"
)

// Error は分類付きのプロバイダエラーです。
type Error struct {
	Class ErrorClass
	// Reason はブロック理由やステータス名などの補足なのだ。
	Reason     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Class)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError は分類付きエラーを作るのだ。
func NewError(class ErrorClass, reason string, err error) *Error {
	return &Error{Class: class, Reason: reason, Err: err}
}

// ClassOf はエラーチェーンから分類を取り出します。分類がなければ空文字なのだ。
func ClassOf(err error) ErrorClass {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ""
}

// IsTransient はリトライすべき一時的な失敗（レート制限・5xx）かどうかを返します。
func IsTransient(err error) bool {
	return ClassOf(err) == ClassTransient
}

// IsPermanent はリトライしても意味がない失敗かどうかを返します。
func IsPermanent(err error) bool {
	switch ClassOf(err) {
	case ClassContentPolicy, ClassAuth, ClassPrecondition:
		return true
	}
	return errors.Is(err, context.Canceled)
}

// ClassifyStatus は HTTP ステータスコードから分類を決めるのだ。
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ClassAuth
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return ClassTransient
	case code >= 500:
		return ClassTransient
	case code == http.StatusBadRequest || code == http.StatusNotFound || code == http.StatusUnprocessableEntity:
		return ClassPrecondition
	default:
		return ClassTransport
	}
}

var statusCodeRegex = regexp.MustCompile(`\b([45]\d{2})\b`)

type statusCoder interface {
	StatusCode() int
}

// ClassifyHTTPError は HTTP クライアントのエラーを分類付きエラーに変換します。
// ステータスを返すメソッドがなければ、メッセージ中の 4xx/5xx コードから推定するのだ。
func ClassifyHTTPError(err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Class: ClassTransient, Reason: "timeout", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	code := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
	} else if m := statusCodeRegex.FindStringSubmatch(err.Error()); m != nil {
		code, _ = strconv.Atoi(m[1])
	}
	if code == 0 {
		return &Error{Class: ClassTransport, Err: err}
	}
	return &Error{Class: ClassifyStatus(code), Reason: http.StatusText(code), StatusCode: code, Err: err}
}

// UserMessage はエンドユーザー向けに分類名入りのメッセージを返すのだ。
// 生の応答テキストは含めないのだ。
func UserMessage(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return fmt.Sprintf("処理に失敗しました: %v", err)
	}
	switch pe.Class {
	case ClassContentPolicy:
		if pe.Reason != "" {
			return fmt.Sprintf("コンテンツポリシーによりブロックされました (%s)", pe.Reason)
		}
		return "コンテンツポリシーによりブロックされました"
	case ClassMalformedOutput:
		return "AIの応答を解析できませんでした (malformed output)"
	case ClassAuth:
		return "認証に失敗しました。APIキーと権限を確認してください (auth)"
	case ClassTransient:
		return "サービスが一時的に利用できません。時間をおいて再試行してください (transient)"
	case ClassPrecondition:
		return fmt.Sprintf("リクエストが不正です (precondition): %v", pe.Err)
	default:
		return "通信に失敗しました (transport)"
	}
}
