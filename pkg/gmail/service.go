package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const userID = "me"

type Service struct {
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	endpoint string
}

type Option func(*Service)

// WithEndpoint points the client at a different API root, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return func(s *Service) {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		s.endpoint = endpoint
	}
}

// WithRateLimit caps outgoing calls per second across all accounts.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Client errors say nothing about the health of the API.
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Gmail] circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return s
}

func (s *Service) client(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	if s.endpoint != "" {
		srv.BasePath = s.endpoint
	}
	return srv, nil
}

// call runs fn behind the limiter and the breaker and classifies its error.
func (s *Service) call(ctx context.Context, fn func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("gmail unavailable: %w", err)
	}
	return wrapError(err)
}

// ListHistory collects message-added ids since startCursor across all pages.
func (s *Service) ListHistory(ctx context.Context, token *oauth2.Token, startCursor uint64) (*maildomain.HistoryChanges, error) {
	srv, err := s.client(ctx, token)
	if err != nil {
		return nil, err
	}

	changes := &maildomain.HistoryChanges{}
	pageToken := ""
	for {
		req := srv.Users.History.List(userID).
			StartHistoryId(startCursor).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		var resp *gmail.ListHistoryResponse
		err := s.call(ctx, func() error {
			var callErr error
			resp, callErr = req.Do()
			return callErr
		})
		if err != nil {
			if errors.Is(err, maildomain.ErrNotFound) {
				return nil, fmt.Errorf("%w: start history id %d", maildomain.ErrHistoryExpired, startCursor)
			}
			return nil, fmt.Errorf("unable to list history: %w", err)
		}

		for _, h := range resp.History {
			changes.Records++
			for _, added := range h.MessagesAdded {
				if added.Message != nil && added.Message.Id != "" {
					changes.AddedMessageIDs = append(changes.AddedMessageIDs, added.Message.Id)
				}
			}
		}

		if resp.NextPageToken == "" {
			return changes, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetMessage fetches a message in full format.
func (s *Service) GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*maildomain.RawMessage, error) {
	srv, err := s.client(ctx, token)
	if err != nil {
		return nil, err
	}

	var msg *gmail.Message
	err = s.call(ctx, func() error {
		var callErr error
		msg, callErr = srv.Users.Messages.Get(userID, messageID).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", messageID, err)
	}

	return &maildomain.RawMessage{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		LabelIDs:     msg.LabelIds,
		InternalDate: msg.InternalDate,
		Payload:      convertPart(msg.Payload),
	}, nil
}

// Watch sets up push notifications for the mailbox.
func (s *Service) Watch(ctx context.Context, token *oauth2.Token, topicName string, labelIDs []string) (*maildomain.WatchResult, error) {
	srv, err := s.client(ctx, token)
	if err != nil {
		return nil, err
	}

	// Only one watch per user is allowed; clear any previous one first.
	_ = s.call(ctx, func() error {
		return srv.Users.Stop(userID).Context(ctx).Do()
	})

	if len(labelIDs) == 0 {
		labelIDs = []string{"INBOX"}
	}
	var resp *gmail.WatchResponse
	err = s.call(ctx, func() error {
		var callErr error
		resp, callErr = srv.Users.Watch(userID, &gmail.WatchRequest{
			TopicName: topicName,
			LabelIds:  labelIDs,
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	log.Printf("[Gmail] Watch started on %s. Expiration: %d, HistoryId: %d", topicName, resp.Expiration, resp.HistoryId)
	return &maildomain.WatchResult{
		HistoryID:  resp.HistoryId,
		Expiration: time.UnixMilli(resp.Expiration).UTC(),
	}, nil
}

// Stop stops push notifications for the mailbox.
func (s *Service) Stop(ctx context.Context, token *oauth2.Token) error {
	srv, err := s.client(ctx, token)
	if err != nil {
		return err
	}
	if err := s.call(ctx, func() error {
		return srv.Users.Stop(userID).Context(ctx).Do()
	}); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// ApplyLabel adds the user label named labelName to a message, creating the label when missing.
func (s *Service) ApplyLabel(ctx context.Context, token *oauth2.Token, messageID, labelName string) error {
	srv, err := s.client(ctx, token)
	if err != nil {
		return err
	}

	labelID, err := s.ensureLabel(ctx, srv, labelName)
	if err != nil {
		return err
	}

	err = s.call(ctx, func() error {
		_, callErr := srv.Users.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{labelID},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return fmt.Errorf("unable to modify message labels: %w", err)
	}
	return nil
}

func (s *Service) ensureLabel(ctx context.Context, srv *gmail.Service, name string) (string, error) {
	var labels *gmail.ListLabelsResponse
	err := s.call(ctx, func() error {
		var callErr error
		labels, callErr = srv.Users.Labels.List(userID).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve labels: %w", err)
	}
	for _, l := range labels.Labels {
		if strings.EqualFold(l.Name, name) {
			return l.Id, nil
		}
	}

	var created *gmail.Label
	err = s.call(ctx, func() error {
		var callErr error
		created, callErr = srv.Users.Labels.Create(userID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("unable to create label %q: %w", name, err)
	}
	return created.Id, nil
}

// CreateDraft stores an RFC 822 message as a draft in threadID.
func (s *Service) CreateDraft(ctx context.Context, token *oauth2.Token, threadID string, raw []byte) (string, error) {
	srv, err := s.client(ctx, token)
	if err != nil {
		return "", err
	}

	var draft *gmail.Draft
	err = s.call(ctx, func() error {
		var callErr error
		draft, callErr = srv.Users.Drafts.Create(userID, &gmail.Draft{
			Message: &gmail.Message{
				Raw:      base64.URLEncoding.EncodeToString(raw),
				ThreadId: threadID,
			},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("unable to create draft: %w", err)
	}
	return draft.Id, nil
}

func convertPart(p *gmail.MessagePart) *maildomain.MessagePart {
	if p == nil {
		return nil
	}
	part := &maildomain.MessagePart{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	for _, h := range p.Headers {
		part.Headers = append(part.Headers, maildomain.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child))
	}
	return part
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", maildomain.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", maildomain.ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", maildomain.ErrRateLimited, err)
	default:
		return err
	}
}

func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
	}
	return false
}
