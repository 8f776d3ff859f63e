package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PayloadDecoder parses the unwrapped {emailAddress, historyId} message data.
type PayloadDecoder interface {
	DecodePayload(data []byte) (*maildomain.ChangeNotification, error)
}

type ChangeHandler interface {
	HandleChange(ctx context.Context, n maildomain.ChangeNotification, source historydomain.Source) (*domain.BatchSummary, error)
}

// Subscriber pulls change notifications from the mailbox topic's subscription
// and runs each one to completion before acking it.
type Subscriber struct {
	pubsubClient *pubsub.Client
	decoder      PayloadDecoder
	handler      ChangeHandler
	topicName    string
	subName      string
	maxInFlight  int
}

func NewSubscriber(ctx context.Context, projectID, topicName, credentialsFile string, decoder PayloadDecoder, handler ChangeHandler, maxInFlight int) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	return &Subscriber{
		pubsubClient: client,
		decoder:      decoder,
		handler:      handler,
		topicName:    topicName,
		subName:      topicName + "-sub",
		maxInFlight:  maxInFlight,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	log.Printf("[PubSub] Starting subscriber with topic: %s, subscription: %s", s.topicName, s.subName)

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = s.maxInFlight

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handleMessage(ctx, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive on %s: %w", s.subName, err)
	}
	return nil
}

func (s *Subscriber) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", s.subName, err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", s.topicName, err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", s.subName, err)
	}
	log.Printf("[PubSub] Created subscription: %s", s.subName)
	return sub, nil
}

// handleMessage reports whether the message should be acked. Only failures
// a redelivery can fix are nacked.
func (s *Subscriber) handleMessage(ctx context.Context, data []byte) bool {
	n, err := s.decoder.DecodePayload(data)
	if err != nil {
		log.Printf("[PubSub] Dropping undecodable message: %v", err)
		return true
	}

	summary, err := s.handler.HandleChange(ctx, *n, historydomain.SourceHook)
	switch {
	case err == nil:
		log.Printf("[PubSub] %s cursor %d: %d messages enriched", n.AccountIdentifier, n.ChangeCursor, summary.Enriched())
		return true
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		log.Printf("[PubSub] Dropping notification for unknown account %s", n.AccountIdentifier)
		return true
	default:
		log.Printf("[PubSub] Batch for %s cursor %d failed, requesting redelivery: %v", n.AccountIdentifier, n.ChangeCursor, err)
		return false
	}
}

func (s *Subscriber) Close() error {
	return s.pubsubClient.Close()
}
