package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// handleSSE opens a server-sent-events stream and announces the message
// endpoint for this session. Messages themselves arrive over plain POSTs
// to /sse/message; the core dispatch path is identical to /mcp.
func (s *Server) handleSSE(c echo.Context) error {
	sessionID := uuid.NewString()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	endpoint := fmt.Sprintf("%s://%s/sse/message?sessionId=%s",
		scheme(c), c.Request().Host, sessionID)
	if _, err := fmt.Fprintf(res, "event: endpoint\ndata: %s\n\n", endpoint); err != nil {
		return err
	}
	res.Flush()

	// Hold the stream open until the client goes away.
	<-c.Request().Context().Done()
	return nil
}
