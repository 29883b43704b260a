package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// ComplaintHandler serves the complaint access layer over HTTP, SSE and WebSocket.
type ComplaintHandler struct {
	service   service.ComplaintService
	feed      service.ComplaintFeed
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewComplaintHandler constructs the complaint handler.
func NewComplaintHandler(service service.ComplaintService, feed service.ComplaintFeed, logger zerolog.Logger, keepAlive time.Duration) *ComplaintHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &ComplaintHandler{
		service:   service,
		feed:      feed,
		logger:    logger.With().Str("component", "complaint_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds complaint routes. The router must already authenticate and load the identity.
func (h *ComplaintHandler) Register(router fiber.Router) {
	router.Get("", middleware.Guard(), h.list)
	router.Post("", middleware.GuardRoute(access.PathLodgeComplaint), h.submit)
	router.Get("/stream", middleware.Guard(), h.stream)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", middleware.Guard(), websocket.New(h.handleConnection))

	router.Get("/:id", middleware.Guard(), h.get)
	router.Patch("/:id/resolve", middleware.GuardRoute(access.PathAllComplaints), h.resolve)
}

func (h *ComplaintHandler) list(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	complaints, err := h.service.List(requestContext(c), identity, complaintListRequest(c))
	if err != nil {
		return h.fail(c, err, "failed to list complaints")
	}

	return utils.OK(c, complaints, "complaints", fiber.Map{"count": len(complaints)})
}

func (h *ComplaintHandler) get(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	complaint, err := h.service.Get(requestContext(c), identity, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to load complaint")
	}

	return utils.SendSuccess(c, "complaint", complaint)
}

func (h *ComplaintHandler) submit(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.ComplaintCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	complaint, err := h.service.Submit(requestContext(c), identity, payload)
	if err != nil {
		return h.fail(c, err, "failed to submit complaint")
	}

	requestLogger(h.logger, c).Info().Str("complaint_id", complaint.ID).Str("category", string(complaint.Category)).Msg("complaint submitted")
	return utils.Created(c, "complaint submitted", complaint)
}

func (h *ComplaintHandler) resolve(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	complaint, err := h.service.Resolve(requestContext(c), identity, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to resolve complaint")
	}

	requestLogger(h.logger, c).Info().Str("complaint_id", complaint.ID).Str("resolved_by", identity.UserID).Msg("complaint resolved")
	return utils.SendSuccess(c, "complaint resolved", complaint)
}

func (h *ComplaintHandler) stream(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	// fasthttp does not cancel the request context on disconnect; write errors end the stream.
	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c)))
	snapshots, err := h.feed.Subscribe(ctx, identity.UserID, complaintListRequest(c))
	if err != nil {
		cancel()
		return h.fail(c, err, "failed to open complaint stream")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := requestLogger(h.logger, c).With().Str("user_id", identity.UserID).Logger()
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-snapshots:
				if !ok {
					_ = writeStreamClose(w)
					return
				}
				if err := writeSnapshotEvent(w, snapshot); err != nil {
					logger.Debug().Err(err).Msg("complaint stream closed by client")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write complaint stream keepalive")
					return
				}
			}
		}
	})

	return nil
}

type socketMessage struct {
	Type     string                 `json:"type"`
	Snapshot *dto.ComplaintSnapshot `json:"snapshot,omitempty"`
}

// Close codes sent on the complaint socket.
const (
	closeCodeInvalidRequest = 4400
	closeCodeUnauthorized   = 4401
	closeCodeSessionEnded   = 4403
)

func (h *ComplaintHandler) handleConnection(conn *websocket.Conn) {
	identity, ok := conn.Locals("identity").(models.Identity)
	if !ok {
		closeSocket(conn, closeCodeUnauthorized, "authentication required")
		return
	}

	correlation, _ := conn.Locals("correlation_id").(string)
	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	defer cancel()

	filter := dto.ComplaintListRequest{
		Status:   strings.TrimSpace(conn.Query("status")),
		Category: strings.TrimSpace(conn.Query("category")),
	}

	logger := h.logger.With().Str("user_id", identity.UserID).Str("correlation_id", correlation).Logger()

	snapshots, err := h.feed.Subscribe(ctx, identity.UserID, filter)
	if err != nil {
		if isValidationError(err) {
			closeSocket(conn, closeCodeInvalidRequest, "invalid complaint filter")
			return
		}
		logger.Error().Err(err).Msg("failed to open complaint socket feed")
		closeSocket(conn, websocket.CloseInternalServerErr, "failed to open complaint feed")
		return
	}

	logger.Info().Msg("complaint websocket connected")
	defer logger.Info().Msg("complaint websocket disconnected")

	// The read loop only detects the peer going away; clients send nothing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				closeSocket(conn, closeCodeSessionEnded, "session ended")
				return
			}
			if err := conn.WriteJSON(socketMessage{Type: "snapshot", Snapshot: &snapshot}); err != nil {
				logger.Debug().Err(err).Msg("failed to write complaint snapshot")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func closeSocket(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = conn.Close()
}

func (h *ComplaintHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return validationFailure(c, err)
	case errors.Is(err, service.ErrComplaintNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrComplaintAlreadyResolved):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.Redirect(c, fiber.StatusForbidden, "insufficient permissions", access.PathDashboard)
	case errors.Is(err, service.ErrProfileNotFound), errors.Is(err, access.ErrUnknownRole):
		return unauthenticated(c)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func writeSnapshotEvent(w *bufio.Writer, snapshot dto.ComplaintSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\n", snapshot.Sequence); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeStreamClose(w *bufio.Writer) error {
	if _, err := fmt.Fprint(w, "event: close\ndata: {}\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
