// internal/auth/ticket.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// privateKey and publicKey sign and verify websocket connect tickets.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// ticketExpireSec indicates how many seconds until ticket expiration (0 => never).
	ticketExpireSec int
)

func parseTicketExpireTime() {
	duration := os.Getenv("TICKET_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		ticketExpireSec = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse ticket expire time: %v\n", err)
			os.Exit(1)
		}
		ticketExpireSec = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime and sets the ticket
// expiration. Tickets only live as long as the process, which matches the
// purely in-memory room state.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTicketExpireTime()
}

// IssueTicket signs a connect ticket carrying the member identity and the
// room's connection token. The websocket handshake presents this ticket;
// the core only ever sees the embedded "userId:connectionToken" credential.
func IssueTicket(userID, connectionToken string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"rtk": connectionToken,
	}
	if ticketExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(ticketExpireSec) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifyTicket validates a ticket and returns the raw "userId:connectionToken"
// credential it carries.
func VerifyTicket(ticket string) (string, error) {
	t, err := jwt.Parse(ticket, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("ticket parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid ticket")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid ticket claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in ticket")
	}
	roomToken, ok := claims["rtk"].(string)
	if !ok {
		return "", fmt.Errorf("missing rtk in ticket")
	}

	return userID + ":" + roomToken, nil
}
