package usecase

import (
	"context"
	"fmt"
	"strings"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/account/repository"
	enrichdomain "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	"golang.org/x/oauth2"
)

// Directory resolves accounts and the per-account pipeline profile.
type Directory struct {
	repo        repository.AccountRepository
	credentials *Credentials
	policy      config.Policy
}

func NewDirectory(repo repository.AccountRepository, credentials *Credentials, policy config.Policy) *Directory {
	return &Directory{repo: repo, credentials: credentials, policy: policy}
}

// FindByEmail returns ErrAccountNotFound when no account owns email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	account, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrAccountNotFound, email)
	}
	return account, nil
}

func (d *Directory) FindByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	account, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrAccountNotFound, id)
	}
	return account, nil
}

// Profile merges the stored settings and labels with the service policy.
func (d *Directory) Profile(ctx context.Context, account *accountdomain.Account) (enrichdomain.Profile, error) {
	settings, labels, err := d.repo.LoadPolicy(ctx, account.ID)
	if err != nil {
		return enrichdomain.Profile{}, fmt.Errorf("load policy for %s: %w", account.ID, err)
	}

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	if len(names) == 0 {
		names = append(names, d.policy.DefaultLabels...)
	}

	needsReply := d.policy.NeedsReplyLabels
	if len(settings.NeedsReplyLabels) > 0 {
		needsReply = settings.NeedsReplyLabels
	}
	alwaysReply := d.policy.AlwaysReplyRoles
	if len(settings.AlwaysReplyRoles) > 0 {
		alwaysReply = settings.AlwaysReplyRoles
	}

	return enrichdomain.Profile{
		AccountID:        account.ID,
		Role:             strings.ToLower(strings.TrimSpace(account.Role)),
		Labels:           names,
		NeedsReplyLabels: needsReply,
		AlwaysReplyRoles: alwaysReply,
		FinanceLabels:    d.policy.FinanceLabels,
		AutoLabel:        settings.AutoLabel,
		AutoResponse:     settings.AutoResponse,
		CreateDraft:      settings.CreateDraft,
		ScheduleEvent:    settings.ScheduleEvent,
	}, nil
}

// AdvanceCursor raises the account's high-water cursor.
func (d *Directory) AdvanceCursor(ctx context.Context, accountID string, cursor uint64) (bool, error) {
	return d.repo.AdvanceCursor(ctx, accountID, cursor)
}

// RegisterRequest connects a mailbox with an already granted refresh token.
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates the account and seals its refresh token.
func (d *Directory) Register(ctx context.Context, req RegisterRequest) (*accountdomain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("account %s already exists", email)
	}

	account := &accountdomain.Account{
		Email:    email,
		Name:     req.Name,
		Role:     strings.ToLower(strings.TrimSpace(req.Role)),
		Provider: "google",
	}
	if err := d.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	if err := d.credentials.StoreTokens(ctx, account.ID, &oauth2.Token{RefreshToken: req.RefreshToken}); err != nil {
		return nil, err
	}
	return account, nil
}

// Settings returns the stored settings, or the defaults when none were saved.
func (d *Directory) Settings(ctx context.Context, accountID string) (*accountdomain.Settings, []accountdomain.Label, error) {
	if _, err := d.FindByID(ctx, accountID); err != nil {
		return nil, nil, err
	}
	return d.repo.LoadPolicy(ctx, accountID)
}

func (d *Directory) UpdateSettings(ctx context.Context, settings *accountdomain.Settings) error {
	if _, err := d.FindByID(ctx, settings.AccountID); err != nil {
		return err
	}
	settings.NeedsReplyLabels = lowerAll(settings.NeedsReplyLabels)
	settings.AlwaysReplyRoles = lowerAll(settings.AlwaysReplyRoles)
	return d.repo.SaveSettings(ctx, settings)
}

// SetLabels replaces the account's label set, keeping the given order.
func (d *Directory) SetLabels(ctx context.Context, accountID string, labels []accountdomain.Label) error {
	if _, err := d.FindByID(ctx, accountID); err != nil {
		return err
	}
	seen := map[string]bool{}
	clean := make([]accountdomain.Label, 0, len(labels))
	for _, l := range labels {
		l.Name = strings.TrimSpace(l.Name)
		key := strings.ToLower(l.Name)
		if l.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		clean = append(clean, l)
	}
	return d.repo.ReplaceLabels(ctx, accountID, clean)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
