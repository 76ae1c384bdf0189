package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slok/codesbx/internal/app/compile"
	"github.com/slok/codesbx/internal/app/execute"
	"github.com/slok/codesbx/internal/submission"
)

const liveWriteTimeout = 10 * time.Second

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Browsers get the same origin allowlist as the CORS protected endpoints.
		// Clients that don't send an Origin (CLIs, servers) are not browsers.
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// live serves the live editor channel. Frames are handled one at a time in
// arrival order and every frame gets exactly one envelope back.
func (h *apiHandler) live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client.
		h.logger.WithCtxValues(r.Context()).Warningf("Could not upgrade websocket connection: %s", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxBodyBytes)
	logger := h.logger.WithCtxValues(r.Context())
	logger.Debugf("Live editor connection opened")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warningf("Live editor connection closed: %s", err)
			}
			return
		}

		var resp envelope
		if msgType != websocket.TextMessage {
			resp = h.liveError(r, &submission.ValidationError{Message: "only text frames are supported"})
		} else {
			resp = h.liveFrame(r, data)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warningf("Could not write live editor response: %s", err)
			return
		}
	}
}

func (h *apiHandler) liveFrame(r *http.Request, data []byte) envelope {
	frame, err := submission.DecodeFrame(data)
	if err != nil {
		return h.liveError(r, err)
	}

	ctx := r.Context()
	reqID := requestIDFromCtx(ctx)
	switch frame.Action {
	case submission.ActionCompile:
		res, err := h.compileSvc.Run(ctx, compile.Request{Code: frame.Code, RequestID: reqID})
		if err != nil {
			return h.liveError(r, err)
		}
		return envelope{Success: true, Data: res}
	case submission.ActionExecute:
		res, err := h.executeSvc.Run(ctx, execute.Request{Code: frame.Code, RequestID: reqID})
		if err != nil {
			return h.liveError(r, err)
		}
		return envelope{Success: true, Data: res}
	}

	return h.liveError(r, fmt.Errorf("unknown action %q", frame.Action))
}

func (h *apiHandler) liveError(r *http.Request, err error) envelope {
	aerr := toAPIError(err, requestIDFromCtx(r.Context()), h.environment == EnvironmentProduction)
	if aerr.status >= http.StatusInternalServerError {
		h.logger.WithCtxValues(r.Context()).Errorf("Live editor frame failed: %s", err)
	}
	body := aerr.body
	return envelope{Success: false, Error: &body}
}
