package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	StreamChat(ctx *fiber.Ctx) error
	CancelStream(ctx *fiber.Ctx) error
	React(ctx *fiber.Ctx) error
	Comment(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	streamCfg   config.StreamConfig
}

func NewChatController(chatService service.IChatService, streamCfg config.StreamConfig) IChatController {
	return &chatController{
		chatService: chatService,
		streamCfg:   streamCfg,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.GetAllSessions)
	h.Get("sessions/:id/history", c.GetChatHistory)
	h.Post("stream", c.StreamChat)
	h.Post("sessions/:id/cancel", c.CancelStream)
	h.Post("sessions/:id/messages/:messageId/reactions", c.React)
	h.Post("sessions/:id/messages/:messageId/comments", c.Comment)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create chat session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetAllSessions(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list chat sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// StreamChat starts a generation and delivers it as Server-Sent Events:
// a "chunk" event per delta, then one terminal "done" or "error" event.
func (c *chatController) StreamChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	idleTimeout := time.Duration(c.streamCfg.IdleTimeoutMs) * time.Millisecond
	if override := ctx.QueryInt("idle_timeout_ms"); override > 0 {
		idleTimeout = time.Duration(override) * time.Millisecond
	}

	sub, err := c.chatService.StartStream(ctx.Context(), &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	sessionId := req.ChatSessionId
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for {
			recvCtx, cancel := context.WithTimeout(context.Background(), idleTimeout)
			ev, err := sub.Recv(recvCtx)
			cancel()

			if errors.Is(err, stream.ErrStreamClosed) {
				return
			}
			if err != nil {
				// Idle timeout: stop the generation and tell the client.
				_ = c.chatService.CancelStream(context.Background(), sessionId)
				writeSSE(w, stream.EventError, dto.StreamErrorPayload{Message: "stream idle timeout"})
				return
			}

			var writeErr error
			switch ev.Type {
			case stream.EventChunk:
				writeErr = writeSSE(w, stream.EventChunk, dto.StreamChunkPayload{Delta: ev.Delta})
			case stream.EventDone:
				writeErr = writeSSE(w, stream.EventDone, dto.StreamDonePayload{Message: *service.MessageToHistoryDTO(ev.Message)})
			case stream.EventError:
				writeErr = writeSSE(w, stream.EventError, dto.StreamErrorPayload{Message: ev.Err.Error()})
			}
			if writeErr != nil {
				// Client went away; release the generation.
				_ = c.chatService.CancelStream(context.Background(), sessionId)
				return
			}
		}
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event stream.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *chatController) CancelStream(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat session id")
	}

	if err := c.chatService.CancelStream(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success cancel stream", nil))
}

func (c *chatController) React(ctx *fiber.Ctx) error {
	sessionId, messageId, err := parseMessagePath(ctx)
	if err != nil {
		return err
	}

	var req dto.ReactRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.React(ctx.Context(), sessionId, messageId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success record reaction", res))
}

func (c *chatController) Comment(ctx *fiber.Ctx) error {
	sessionId, messageId, err := parseMessagePath(ctx)
	if err != nil {
		return err
	}

	var req dto.CommentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Comment(ctx.Context(), sessionId, messageId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add comment", res))
}

func parseMessagePath(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid chat session id")
	}
	messageId, err := uuid.Parse(ctx.Params("messageId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}
	return sessionId, messageId, nil
}
