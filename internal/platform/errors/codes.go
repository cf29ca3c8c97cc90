// Package errors provides structured error handling with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"

	// User errors
	CodeUserEmptyUsername Code = "USER_EMPTY_USERNAME"
	CodeUserEmptyPassword Code = "USER_EMPTY_PASSWORD"
	CodeUsernameTaken     Code = "USERNAME_TAKEN"
	CodeUserNotFound      Code = "USER_NOT_FOUND"

	// Friendship errors
	CodeFriendshipExists Code = "FRIENDSHIP_EXISTS"
	CodeFriendIsSelf     Code = "FRIEND_IS_SELF"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps the error code to an HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUserEmptyUsername,
		CodeUserEmptyPassword,
		CodeUsernameTaken,
		CodeFriendshipExists,
		CodeFriendIsSelf:
		return http.StatusBadRequest
	case CodeUnauthenticated,
		CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeUserNotFound,
		CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
