package usecase

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
)

// pushEnvelope is the Pub/Sub push body. Only message.data is used.
type pushEnvelope struct {
	Message *struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type notificationPayload struct {
	EmailAddress *string        `json:"emailAddress"`
	HistoryID    json.RawMessage `json:"historyId"`
}

// Decoder turns inbound notification envelopes into ChangeNotifications.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode unwraps a push envelope whose message.data is base64 encoded JSON.
func (d *Decoder) Decode(envelope []byte) (*maildomain.ChangeNotification, error) {
	var env pushEnvelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope is not json: %v", maildomain.ErrDecode, err)
	}
	if env.Message == nil || strings.TrimSpace(env.Message.Data) == "" {
		return nil, fmt.Errorf("%w: message data is missing", maildomain.ErrDecode)
	}

	data, err := decodeBase64(strings.TrimSpace(env.Message.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: message data is not base64", maildomain.ErrDecode)
	}
	return d.DecodePayload(data)
}

// DecodePayload parses the already unwrapped {emailAddress, historyId} JSON.
func (d *Decoder) DecodePayload(data []byte) (*maildomain.ChangeNotification, error) {
	var p notificationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: payload is not valid json: %v", maildomain.ErrDecode, err)
	}
	if p.EmailAddress == nil || strings.TrimSpace(*p.EmailAddress) == "" {
		return nil, fmt.Errorf("%w: emailAddress is missing", maildomain.ErrDecode)
	}
	cursor, err := parseCursor(p.HistoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", maildomain.ErrDecode, err)
	}

	return &maildomain.ChangeNotification{
		AccountIdentifier: strings.ToLower(strings.TrimSpace(*p.EmailAddress)),
		ChangeCursor:      cursor,
	}, nil
}

// parseCursor accepts a JSON number or a numeric string. Zero is not a valid cursor.
func parseCursor(raw json.RawMessage) (uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("historyId is missing")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("historyId is malformed")
		}
	}

	cursor, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("historyId %q is not an unsigned integer", text)
	}
	if cursor == 0 {
		return 0, fmt.Errorf("historyId must be positive")
	}
	return cursor, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		out, err := enc.DecodeString(s)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
