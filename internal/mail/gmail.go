package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

const gmailUser = "me"

// GmailConfig tunes mailbox listing.
type GmailConfig struct {
	PageSize    int64 // messages requested per page
	MaxPerQuery int   // stop paging a query after this many ids
}

// GmailSource implements service.MailSource on the Gmail REST API.
type GmailSource struct {
	svc    *gmail.Service
	logger *slog.Logger
	cfg    GmailConfig
}

// NewGmailSource builds a source authorized by ts. Extra client options (endpoint,
// HTTP client) are passed through, which tests use to point at a fake server.
func NewGmailSource(ctx context.Context, ts oauth2.TokenSource, cfg GmailConfig, logger *slog.Logger, opts ...option.ClientOption) (*GmailSource, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 100
	}

	return &GmailSource{svc: svc, cfg: cfg, logger: common.OrDefault(logger)}, nil
}

// ListCandidates returns the ids of messages matching query received in the last
// windowDays days.
func (g *GmailSource) ListCandidates(ctx context.Context, query string, windowDays int) ([]service.MailCandidate, error) {
	if windowDays < 1 {
		windowDays = 1
	}
	q := strings.TrimSpace(fmt.Sprintf("%s newer_than:%dd", query, windowDays))

	var (
		candidates []service.MailCandidate
		pageToken  string
	)
	for {
		call := g.svc.Users.Messages.List(gmailUser).Q(q).MaxResults(g.cfg.PageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages for %q: %w", query, err)
		}

		for _, m := range resp.Messages {
			candidates = append(candidates, service.MailCandidate{ExternalID: m.Id, ThreadID: m.ThreadId})
			if len(candidates) >= g.cfg.MaxPerQuery {
				return candidates, nil
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	g.logger.Debug("listed gmail candidates", "query", q, "count", len(candidates))
	return candidates, nil
}

// FetchFull downloads the complete MIME tree of a message.
func (g *GmailSource) FetchFull(ctx context.Context, externalID string) (*model.MailMessage, error) {
	msg, err := g.svc.Users.Messages.Get(gmailUser, externalID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", externalID, err)
	}
	return convertMessage(msg), nil
}

func convertMessage(msg *gmail.Message) *model.MailMessage {
	out := &model.MailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.InternalDate > 0 {
		out.InternalDate = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload != nil {
		out.Payload = convertPart(msg.Payload)
	}
	return out
}

func convertPart(p *gmail.MessagePart) model.MailPart {
	part := model.MailPart{
		MIMEType: p.MimeType,
		Filename: p.Filename,
		Headers:  make(map[string]string, len(p.Headers)),
	}
	for _, h := range p.Headers {
		if _, seen := part.Headers[h.Name]; !seen {
			part.Headers[h.Name] = h.Value
		}
	}
	if p.Body != nil {
		part.Body = p.Body.Data
	}
	for _, child := range p.Parts {
		if child != nil {
			part.Parts = append(part.Parts, convertPart(child))
		}
	}
	return part
}

var _ service.MailSource = (*GmailSource)(nil)
