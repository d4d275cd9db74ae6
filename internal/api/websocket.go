package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/yegors/maintlog/internal/workflow"
	"github.com/yegors/maintlog/pkg/logger"
)

// wsRequest is the single message a websocket client sends to start a run
type wsRequest struct {
	Image            string `json:"image"` // base64, standard encoding
	AircraftID       string `json:"aircraft_id"`
	PriorityOverride string `json:"priority_override"`
}

// AnalysisWebSocket streams an analysis over a websocket. The client
// sends one wsRequest; the server answers with the same frames as the
// NDJSON endpoint and closes the connection.
func (h *Handler) AnalysisWebSocket() http.Handler {
	return websocket.Server{
		Handshake: h.checkOrigin,
		Handler:   h.serveAnalysis,
	}
}

func (h *Handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if !h.middleware.originAllowed(origin) {
		return fmt.Errorf("origin %q not allowed", origin)
	}
	return nil
}

func (h *Handler) serveAnalysis(conn *websocket.Conn) {
	defer conn.Close()
	conn.MaxPayloadBytes = h.config.Server.MaxUploadMB<<20*4/3 + 4096

	var msg wsRequest
	if err := websocket.JSON.Receive(conn, &msg); err != nil {
		h.logger.Warn("Failed to read websocket analysis request", logger.Error(err))
		websocket.JSON.Send(conn, Frame{Type: FrameError, Error: "invalid request: " + err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(msg.Image)
	if err != nil {
		websocket.JSON.Send(conn, Frame{Type: FrameError, Error: "image must be base64 encoded"})
		return
	}

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	// The client sends nothing after the request; a failed read means it disconnected
	go func() {
		io.Copy(io.Discard, conn)
		cancel()
	}()

	req := workflow.Request{
		Image:            data,
		AircraftID:       msg.AircraftID,
		PriorityOverride: msg.PriorityOverride,
		RunID:            uuid.NewString(),
	}
	h.runFrames(ctx, req, func(f Frame) error {
		return websocket.JSON.Send(conn, f)
	})
}

// readAllLimited reads r fully, failing once more than max bytes arrive
func readAllLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("image exceeds %d bytes", max)
	}
	return data, nil
}
