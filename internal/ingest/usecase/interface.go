package usecase

import (
	"context"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	enrichdomain "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
)

// AccountDirectory resolves accounts and their pipeline profile.
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	Profile(ctx context.Context, account *accountdomain.Account) (enrichdomain.Profile, error)
	AdvanceCursor(ctx context.Context, accountID string, cursor uint64) (bool, error)
}

type HistoryStore interface {
	HasSeen(ctx context.Context, accountID string, cursor uint64) (bool, error)
	Record(ctx context.Context, accountID string, cursor uint64, source historydomain.Source) (*historydomain.HistoryRecord, error)
}

type MessageResolver interface {
	Resolve(ctx context.Context, accountID string, cursor uint64) ([]string, error)
}

type MessageNormalizer interface {
	Normalize(ctx context.Context, accountID string, cursor uint64, messageID string) (*maildomain.NormalizedDocument, error)
}

type Enricher interface {
	Run(ctx context.Context, doc maildomain.NormalizedDocument, profile enrichdomain.Profile) *enrichdomain.MessageOutcome
}

// BatchObserver is told about every summarized batch.
type BatchObserver interface {
	BatchCompleted(ctx context.Context, summary *domain.BatchSummary)
}
