package http

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 5 * time.Second
	wsIdleTimeout = 10 * time.Minute
	wsMaxMessage  = 4096
)

// handleSessionWS streams recomputed reports for a session. The current
// state is sent on connect; every client edit is answered with an
// editResponse, in order.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "session", sess.ID)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	logger := s.logger.With("session", sess.ID)
	logger.Debug("websocket connected")

	ctx := r.Context()
	report, err := sess.Report(ctx)
	if err != nil {
		logger.Error("initial report failed", "error", err)
		return
	}
	if err := s.writeWS(conn, editResponse{Accepted: true, Report: report}); err != nil {
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var req editRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		// Refresh the session's position in the store on every edit.
		if _, err := s.sessions.Get(sess.ID); err != nil {
			_ = s.writeWS(conn, map[string]string{"error": err.Error()})
			return
		}

		var resp any
		if err := s.validate.Struct(&req); err != nil {
			resp = map[string]string{"error": describeError(err)}
		} else if edit, err := applyEdit(ctx, sess, req); err != nil {
			resp = map[string]string{"error": describeError(err)}
		} else {
			resp = edit
		}
		if err := s.writeWS(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Warn("websocket write failed", "error", err)
		return err
	}
	return nil
}

// checkOrigin admits clients that send no Origin (non-browser), same-origin
// pages, and the configured origins. "*" admits any origin.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return a == "*" || strings.EqualFold(a, origin)
		})
	}
}
