/*
Package handler provides HTTP handler functions for the REST surface.
*/
package handler

import (
	"net/http"

	"chatrelay/internal/pkg/resp"
)

// HandleListRooms creates an HTTP HandlerFunc that reports every active room
// and its occupant count. Rooms are implicit, so an empty list simply means
// nobody has joined yet.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"rooms": deps.Registry.Rooms(),
		}
		resp.RespondSuccess(w, r, data)
	}
}
