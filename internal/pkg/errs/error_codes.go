/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound event's JSON was malformed.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Chat Business Logic Errors
const (
	// ErrUsernameRoomRequired indicates that a join event was missing a username or a room name.
	ErrUsernameRoomRequired = 2101

	// ErrUsernameTaken indicates that the requested username is already held by
	// another live user in the same room.
	ErrUsernameTaken = 2102

	// ErrAlreadyJoined indicates that the connection has already completed a join.
	ErrAlreadyJoined = 2103

	// ErrNotJoined indicates that an event requiring a joined user arrived from a
	// connection that never completed a join.
	ErrNotJoined = 2104

	// ErrMessageTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageTooLong = 2201

	// ErrProfanity indicates that the message content was rejected by the profanity filter.
	ErrProfanity = 2202
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
