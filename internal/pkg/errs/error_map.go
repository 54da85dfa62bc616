/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and acknowledgement payloads.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported event format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat Business Logic Errors
	ErrUsernameRoomRequired: {Code: ErrUsernameRoomRequired, Message: "Username and room are required."},
	ErrUsernameTaken:        {Code: ErrUsernameTaken, Message: "Username is in use."},
	ErrAlreadyJoined:        {Code: ErrAlreadyJoined, Message: "You have already joined a room."},
	ErrNotJoined:            {Code: ErrNotJoined, Message: "Join a room before sending messages."},
	ErrMessageTooLong:       {Code: ErrMessageTooLong, Message: "Message is too long."},
	ErrProfanity:            {Code: ErrProfanity, Message: "Profanity is not allowed."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
