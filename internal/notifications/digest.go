package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/pool"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/mailer"
	"github.com/aristath/signalist/internal/templates"
)

// Digest run result messages
const (
	NoUsersMessage      = "No users found for news email"
	DigestSentMessage   = "Daily news summary emails sent successfully"
	digestSubjectPrefix = "📈 Market News Summary Today - "
)

// DispatchReport summarizes the send stage of a digest run
type DispatchReport struct {
	Sent     int               `json:"sent"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Failures map[string]string `json:"failures,omitempty"` // email -> error
}

// Err aggregates the failures, nil when every send succeeded
func (r DispatchReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	emails := make([]string, 0, len(r.Failures))
	for email := range r.Failures {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	var result *multierror.Error
	for _, email := range emails {
		result = multierror.Append(result, fmt.Errorf("%s: %s", email, r.Failures[email]))
	}
	return result.ErrorOrNil()
}

// DigestSubject returns the subject line of the digest sent on date
func DigestSubject(date time.Time) string {
	return digestSubjectPrefix + templates.DigestDate(date)
}

// Users returns every user that should receive the digest
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	users, err := s.deps.Users.ListForNewsEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for news email: %w", err)
	}
	return users, nil
}

// CollectNews fetches the news of every user. Each user gets exactly one
// UserNews in input order; a failure degrades that user to no articles.
func (s *Service) CollectNews(ctx context.Context, users []domain.User) []domain.UserNews {
	mapper := iter.Mapper[domain.User, domain.UserNews]{MaxGoroutines: s.opts.Concurrency}

	return mapper.Map(users, func(u *domain.User) domain.UserNews {
		articles, err := s.userNews(ctx, u.Email)
		if err != nil {
			s.log.Warn().Err(err).Str("email", u.Email).Msg("Failed to fetch news for user")
			s.deps.Metrics.NewsFetchFailed()
			return domain.UserNews{User: *u, Articles: []domain.MarketNewsArticle{}, Err: err.Error()}
		}
		return domain.UserNews{User: *u, Articles: articles}
	})
}

// userNews returns up to MaxArticlesPerDigest articles for the watchlist,
// falling back to general market news when the watchlist yields nothing.
func (s *Service) userNews(ctx context.Context, email string) ([]domain.MarketNewsArticle, error) {
	symbols, err := s.deps.Watchlists.SymbolsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("watchlist lookup: %w", err)
	}

	var articles []domain.MarketNewsArticle
	if len(symbols) > 0 {
		articles, err = s.deps.News.News(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("company news: %w", err)
		}
		articles = limitArticles(articles)
	}

	if len(articles) == 0 {
		articles, err = s.deps.News.News(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("general news: %w", err)
		}
		articles = limitArticles(articles)
	}

	return articles, nil
}

func limitArticles(articles []domain.MarketNewsArticle) []domain.MarketNewsArticle {
	if articles == nil {
		return []domain.MarketNewsArticle{}
	}
	if len(articles) > domain.MaxArticlesPerDigest {
		return articles[:domain.MaxArticlesPerDigest]
	}
	return articles
}

// Summarize turns each user's news into digest content. Users without
// articles, or whose summary fails, get empty content and no email.
func (s *Service) Summarize(ctx context.Context, news []domain.UserNews) []domain.UserDigest {
	mapper := iter.Mapper[domain.UserNews, domain.UserDigest]{MaxGoroutines: s.opts.Concurrency}

	return mapper.Map(news, func(n *domain.UserNews) domain.UserDigest {
		digest := domain.UserDigest{User: n.User, Articles: len(n.Articles)}
		if len(n.Articles) == 0 {
			return digest
		}

		content, err := s.deps.Summarizer.Summarize(ctx, n.User, n.Articles)
		if err != nil {
			s.log.Warn().Err(err).Str("email", n.User.Email).Msg("Failed to summarize news for user")
			return digest
		}
		digest.Content = content
		return digest
	})
}

// SendDigests sends every non-empty digest concurrently. A failed send is
// recorded in the report and does not stop the others.
func (s *Service) SendDigests(ctx context.Context, digests []domain.UserDigest, date time.Time) (DispatchReport, error) {
	report := DispatchReport{Failures: make(map[string]string)}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	subject := DigestSubject(date)
	dateText := templates.DigestDate(date)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.opts.Concurrency)

	for _, d := range digests {
		if d.Content == "" || d.User.Email == "" {
			report.Skipped++
			continue
		}

		p.Go(func() {
			err := s.sendDigest(ctx, d, subject, dateText, date)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Failures[d.User.Email] = err.Error()
				return
			}
			report.Sent++
		})
	}
	p.Wait()

	return report, nil
}

func (s *Service) sendDigest(ctx context.Context, d domain.UserDigest, subject, dateText string, date time.Time) error {
	html, err := templates.RenderDigest(templates.DigestData{
		Name:    d.User.Name,
		Date:    dateText,
		Content: d.Content,
	})
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, domain.DeliveryDigest, mailer.Message{
		To:      d.User.Email,
		ToName:  d.User.Name,
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return err
	}

	if s.deps.Archive != nil {
		if _, err := s.deps.Archive.Store(ctx, date, d.User.ID, html); err != nil {
			s.log.Warn().Err(err).Str("email", d.User.Email).Msg("Failed to archive digest")
		}
	}
	return nil
}

// RunDailyDigest chains every digest stage in-process
func (s *Service) RunDailyDigest(ctx context.Context) (domain.WorkflowResult, error) {
	start := s.deps.Clock.Now()

	users, err := s.Users(ctx)
	if err != nil {
		s.deps.Metrics.DigestRun("error", s.deps.Clock.Since(start))
		return domain.WorkflowResult{}, err
	}
	if len(users) == 0 {
		s.log.Info().Msg(NoUsersMessage)
		s.deps.Metrics.DigestRun("no_users", s.deps.Clock.Since(start))
		return domain.WorkflowResult{Success: false, Message: NoUsersMessage}, nil
	}

	news := s.CollectNews(ctx, users)
	digests := s.Summarize(ctx, news)

	report, err := s.SendDigests(ctx, digests, s.deps.Clock.Now())
	if err != nil {
		s.deps.Metrics.DigestRun("error", s.deps.Clock.Since(start))
		return domain.WorkflowResult{}, err
	}

	s.Complete(len(users), report)
	s.deps.Metrics.DigestRun("success", s.deps.Clock.Since(start))

	return domain.WorkflowResult{Success: true, Message: DigestSentMessage}, nil
}

// Complete logs the outcome of a run and announces it on the event bus
func (s *Service) Complete(users int, report DispatchReport) {
	var ev *zerolog.Event
	if err := report.Err(); err != nil {
		ev = s.log.Warn().Err(err)
	} else {
		ev = s.log.Info()
	}
	ev.Int("users", users).
		Int("sent", report.Sent).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Daily news digest completed")

	if s.deps.Events != nil {
		s.deps.Events.Emit(events.DigestCompleted, "notifications", &events.DigestCompletedData{
			Users:   users,
			Sent:    report.Sent,
			Skipped: report.Skipped,
			Failed:  report.Failed,
			Message: DigestSentMessage,
		})
	}
}
