// internal/ws/handler.go
package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"gameroom/internal/auth"
)

// Handler upgrades the HTTP request to a websocket, resolves the connect
// ticket from the "token" query parameter into the raw "userId:token"
// credential, registers the connection and runs the read loop until the
// peer goes away.
func Handler(sr *SessionRegistry, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		credential, err := auth.VerifyTicket(r.URL.Query().Get("token"))
		if err != nil {
			logger.Warnf("websocket ticket rejected for %s: %v", remoteAddr, err)
			c.Close(websocket.StatusPolicyViolation, "invalid connect ticket")
			return
		}

		session, err := sr.Connect(credential, NewConn(c))
		if err != nil {
			logger.Warnf("websocket connect rejected for %s: %v", remoteAddr, err)
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
		defer sr.Disconnect(session)

		ctx := r.Context()
		for {
			typ, data, err := c.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					logger.Debugf("websocket closed normally for user %s", session.UserID())
				} else {
					logger.Debugf("websocket read ended for user %s: %v", session.UserID(), err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			sr.HandleMessage(session, data)
		}
	}
}
