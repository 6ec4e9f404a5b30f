package testing

import (
	"context"
	"errors"
	"html/template"
	"sort"
	"strings"
	"sync"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/mailer"
)

// ErrMock is the default error returned by mocks configured to fail
var ErrMock = errors.New("mock error")

// MockUserStore is a mock implementation of domain.UserStore for testing
type MockUserStore struct {
	mu    sync.RWMutex
	users []domain.User
	err   error
}

// NewMockUserStore creates a new mock user store
func NewMockUserStore(users ...domain.User) *MockUserStore {
	return &MockUserStore{users: users}
}

// SetUsers sets the users to return
func (m *MockUserStore) SetUsers(users []domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = users
}

// SetError sets the error to return
func (m *MockUserStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ListForNewsEmail returns the users that have an email address
func (m *MockUserStore) ListForNewsEmail(context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Email != "" {
			result = append(result, u)
		}
	}
	return result, nil
}

// MockWatchlistStore is a mock implementation of domain.WatchlistStore for testing
type MockWatchlistStore struct {
	mu      sync.RWMutex
	symbols map[string][]string
	errs    map[string]error
}

// NewMockWatchlistStore creates a new mock watchlist store
func NewMockWatchlistStore() *MockWatchlistStore {
	return &MockWatchlistStore{
		symbols: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

// SetSymbols sets the watchlist of one user
func (m *MockWatchlistStore) SetSymbols(email string, symbols ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[email] = symbols
}

// SetError makes lookups for one user fail
func (m *MockWatchlistStore) SetError(email string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[email] = err
}

// SymbolsByEmail returns the configured symbols, or an empty slice
func (m *MockWatchlistStore) SymbolsByEmail(_ context.Context, email string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[email]; ok {
		return nil, err
	}
	if s, ok := m.symbols[email]; ok {
		return s, nil
	}
	return []string{}, nil
}

// MockNewsProvider is a mock implementation of domain.NewsProvider for testing.
// Company news is keyed by the comma-joined symbol list.
type MockNewsProvider struct {
	mu         sync.RWMutex
	company    map[string][]domain.MarketNewsArticle
	companyErr map[string]error
	general    []domain.MarketNewsArticle
	generalErr error
	calls      [][]string
}

// NewMockNewsProvider creates a new mock news provider
func NewMockNewsProvider() *MockNewsProvider {
	return &MockNewsProvider{
		company:    make(map[string][]domain.MarketNewsArticle),
		companyErr: make(map[string]error),
	}
}

func newsKey(symbols []string) string {
	return strings.Join(symbols, ",")
}

// SetCompanyNews sets the articles returned for a symbol list
func (m *MockNewsProvider) SetCompanyNews(symbols []string, articles []domain.MarketNewsArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.company[newsKey(symbols)] = articles
}

// SetCompanyError makes requests for a symbol list fail
func (m *MockNewsProvider) SetCompanyError(symbols []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companyErr[newsKey(symbols)] = err
}

// SetGeneralNews sets the articles returned when no symbols are given
func (m *MockNewsProvider) SetGeneralNews(articles []domain.MarketNewsArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.general = articles
}

// SetGeneralError makes general news requests fail
func (m *MockNewsProvider) SetGeneralError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generalErr = err
}

// News returns the configured articles
func (m *MockNewsProvider) News(_ context.Context, symbols []string) ([]domain.MarketNewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, symbols)

	if len(symbols) == 0 {
		if m.generalErr != nil {
			return nil, m.generalErr
		}
		return append([]domain.MarketNewsArticle(nil), m.general...), nil
	}

	key := newsKey(symbols)
	if err, ok := m.companyErr[key]; ok {
		return nil, err
	}
	return append([]domain.MarketNewsArticle(nil), m.company[key]...), nil
}

// Calls returns the symbol lists News was called with
func (m *MockNewsProvider) Calls() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]string(nil), m.calls...)
}

// MockSummarizer is a mock implementation of domain.Summarizer for testing.
// It renders one <li> per headline.
type MockSummarizer struct {
	mu     sync.RWMutex
	errs   map[string]error
	output map[string]template.HTML
	calls  int
}

// NewMockSummarizer creates a new mock summarizer
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{
		errs:   make(map[string]error),
		output: make(map[string]template.HTML),
	}
}

// SetError makes summarizing for one user fail
func (m *MockSummarizer) SetError(email string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[email] = err
}

// SetOutput overrides the HTML returned for one user
func (m *MockSummarizer) SetOutput(email string, html template.HTML) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output[email] = html
}

// Summarize renders the headlines as a list
func (m *MockSummarizer) Summarize(_ context.Context, user domain.User, articles []domain.MarketNewsArticle) (template.HTML, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if err, ok := m.errs[user.Email]; ok {
		return "", err
	}
	if out, ok := m.output[user.Email]; ok {
		return out, nil
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, a := range articles {
		b.WriteString("<li>")
		b.WriteString(template.HTMLEscapeString(a.Headline))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return template.HTML(b.String()), nil
}

// Calls returns how many times Summarize was called
func (m *MockSummarizer) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// MockSender is a mock implementation of mailer.Sender for testing
type MockSender struct {
	mu   sync.RWMutex
	sent []mailer.Message
	errs map[string]error
}

// NewMockSender creates a new mock sender
func NewMockSender() *MockSender {
	return &MockSender{errs: make(map[string]error)}
}

// SetError makes sends to one recipient fail
func (m *MockSender) SetError(to string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[to] = err
}

// Send records the message
func (m *MockSender) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the delivered messages sorted by recipient
func (m *MockSender) Sent() []mailer.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]mailer.Message(nil), m.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// Recipients returns the sorted addresses that received a message
func (m *MockSender) Recipients() []string {
	sent := m.Sent()
	out := make([]string, 0, len(sent))
	for _, msg := range sent {
		out = append(out, msg.To)
	}
	return out
}

// MockDeliveryRecorder is a mock implementation of domain.DeliveryRecorder for testing
type MockDeliveryRecorder struct {
	mu         sync.RWMutex
	deliveries []domain.Delivery
	err        error
}

// NewMockDeliveryRecorder creates a new mock delivery recorder
func NewMockDeliveryRecorder() *MockDeliveryRecorder {
	return &MockDeliveryRecorder{}
}

// SetError sets the error to return
func (m *MockDeliveryRecorder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Record stores the delivery
func (m *MockDeliveryRecorder) Record(_ context.Context, d domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deliveries = append(m.deliveries, d)
	return nil
}

// Deliveries returns the recorded deliveries sorted by recipient
func (m *MockDeliveryRecorder) Deliveries() []domain.Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]domain.Delivery(nil), m.deliveries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Recipient < out[j].Recipient })
	return out
}
