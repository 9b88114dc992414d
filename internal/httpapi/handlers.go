package httpapi

import (
	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/handler"
	"github.com/mharrison-oss/sessiond/internal/obslog"
	"github.com/mharrison-oss/sessiond/internal/response"
	"github.com/mharrison-oss/sessiond/internal/session"
)

// handleChats implements GET /chats: no IPC, pure registry read.
func (a *API) handleChats(ctx handler.Context) handler.Response {
	return response.JSON(struct {
		IDs []int64 `json:"ids"`
	}{IDs: a.sessions.Ascending()})
}

// handleInit implements POST /init: Fork session 0, then Init the new
// child with the request body as the prompt. The child id is inserted
// into the active set regardless of whether Init itself reports an error
// (spec §4.6, §9 resolved open question).
func (a *API) handleInit(ctx handler.Context) handler.Response {
	forkReply, err := a.exchange(ctx, 0, frame.Empty(0, frame.KindForkRequest))
	if err != nil {
		a.logger.Warn("httpapi: init fork exchange failed", obslog.RequestID(ctx.RequestID()), obslog.Error(err))
		return response.Error("Fork failed, model might be busy")
	}

	childID, err := forkReply.AsValue()
	if err != nil || childID == session.ForkBusySentinel {
		return response.Error("Fork failed, model might be busy")
	}

	a.sessions.Add(int64(childID))

	initReply, err := a.exchange(ctx, int64(childID), frame.BlobString(0, frame.KindInitRequest, readBody(ctx.Request())))
	if err != nil {
		a.logger.Warn("httpapi: init exchange failed",
			obslog.RequestID(ctx.RequestID()), obslog.SessionID(int64(childID)), obslog.Error(err))
		return response.Error(err.Error())
	}

	msg := string(initReply.Payload)
	if msg != "Success" {
		return response.Error(msg)
	}

	return response.JSON(struct {
		ID int64 `json:"id"`
	}{ID: int64(childID)})
}

// handleFork implements POST /fork/{id}.
func (a *API) handleFork(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	reply, err := a.exchange(ctx, id, frame.Empty(0, frame.KindForkRequest))
	if err != nil {
		return response.Error(err.Error())
	}

	childID, err := reply.AsValue()
	if err != nil || childID == session.ForkBusySentinel {
		return response.Error("Fork failed, model might be busy")
	}

	a.sessions.Add(int64(childID))
	return response.JSON(struct {
		ID int64 `json:"id"`
	}{ID: int64(childID)})
}

// handleDelete implements POST /delete/{id}.
func (a *API) handleDelete(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	if _, err := a.exchange(ctx, id, frame.Empty(0, frame.KindKillRequest)); err != nil {
		return response.Error(err.Error())
	}

	a.sessions.Remove(id)
	return response.JSON(struct {
		Deleted int64 `json:"deleted"`
	}{Deleted: id})
}

// handleSend implements POST /send/{id}.
func (a *API) handleSend(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	reply, err := a.exchange(ctx, id, frame.BlobString(0, frame.KindSubmitRequest, readBody(ctx.Request())))
	if err != nil {
		return response.Error(err.Error())
	}

	msg := string(reply.Payload)
	if msg != "Success" {
		return response.Error(msg)
	}

	return response.JSON(struct {
		Sent int64 `json:"sent"`
	}{Sent: id})
}

// handleStop implements POST /stop/{id}.
func (a *API) handleStop(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	if _, err := a.exchange(ctx, id, frame.Empty(0, frame.KindStopRequest)); err != nil {
		return response.Error(err.Error())
	}

	return response.JSON(struct {
		Stopped int64 `json:"stopped"`
	}{Stopped: id})
}

// handleUpdate implements GET /update/{id}.
func (a *API) handleUpdate(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	reply, err := a.exchange(ctx, id, frame.Empty(0, frame.KindReleaseOutputRequest))
	if err != nil {
		return response.Error(err.Error())
	}

	output, hasMore, err := reply.AsReleaseOutput()
	if err != nil {
		return response.Error(err.Error())
	}

	return response.JSON(struct {
		Update   string `json:"update"`
		Finished bool   `json:"finished"`
	}{Update: output, Finished: !hasMore})
}

// handleInteract implements POST /interact/{id}: SubmitInput, then block
// on NotifyWhenReady, then ReleaseOutput -- the bounded multi-exchange
// sequence of spec §4.6.
func (a *API) handleInteract(ctx handler.Context) handler.Response {
	id, ok := a.parseSessionID(ctx)
	if !ok {
		return response.Error("Chat not found")
	}

	submitReply, err := a.exchange(ctx, id, frame.BlobString(0, frame.KindSubmitRequest, readBody(ctx.Request())))
	if err != nil {
		return response.Error(err.Error())
	}
	if msg := string(submitReply.Payload); msg != "Success" {
		return response.Error(msg)
	}

	if _, err := a.exchange(ctx, id, frame.Empty(0, frame.KindNotifyRequest)); err != nil {
		return response.Error(err.Error())
	}

	releaseReply, err := a.exchange(ctx, id, frame.Empty(0, frame.KindReleaseOutputRequest))
	if err != nil {
		return response.Error(err.Error())
	}

	output, _, err := releaseReply.AsReleaseOutput()
	if err != nil {
		return response.Error(err.Error())
	}

	return response.JSON(struct {
		Reply string `json:"reply"`
	}{Reply: output})
}
