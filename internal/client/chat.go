package client

import (
	"context"
	"net/http"
	"net/url"
)

// Operation names used in logs and metrics.
const (
	OpGetRooms = "get_rooms"
	OpSendChat = "send_chat"
)

// GetRooms issues GET <base>/rooms and returns the body unmodified.
func (c *Client) GetRooms(ctx context.Context) (Payload, error) {
	return c.do(ctx, &Call{
		Operation: OpGetRooms,
		Method:    http.MethodGet,
		Path:      "/rooms",
	})
}

// SendChat issues POST <base>/<roomID>/chat?userPrompt=<userPrompt> with an
// empty body and returns the response body unmodified.
//
// An empty roomID is the one failure that is not a *Error: it returns
// ErrMissingRoomID without sending anything, since "//chat" names no room.
func (c *Client) SendChat(ctx context.Context, roomID, userPrompt string) (Payload, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}
	return c.do(ctx, &Call{
		Operation: OpSendChat,
		Method:    http.MethodPost,
		Path:      "/" + url.PathEscape(roomID) + "/chat",
		Query:     url.Values{"userPrompt": {userPrompt}},
	})
}
