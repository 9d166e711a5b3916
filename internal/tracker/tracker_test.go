package tracker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetracker/internal/domain"
	"pricetracker/internal/fetcher"
	apperrors "pricetracker/pkg/errors"
	"pricetracker/services/storage"
)

func amazonPage(title string, price float64) string {
	return fmt.Sprintf(`<html><body>
		<span id="productTitle"> %s </span>
		<div class="a-price"><span class="a-offscreen">₹%.2f</span></div>
		<div id="imgTagWrapperId"><img src="https://images.example/p.jpg"></div>
	</body></html>`, title, price)
}

// pageWithoutPrice renders like a client-side shell: title markup only
func pageWithoutPrice(title string) string {
	return fmt.Sprintf(`<html><body><span id="productTitle">%s</span></body></html>`, title)
}

// stubFetcher serves canned markup per URL and records calls
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []fetcher.Options
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string, opts fetcher.Options) (io.Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, apperrors.NewNetwork("", "no such page", nil)
	}
	return strings.NewReader(page), nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memStore is an in-memory Store for pipeline tests
type memStore struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	alerts   map[int64]*domain.Alert
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{products: map[int64]*domain.Product{}, alerts: map[int64]*domain.Alert{}}
}

func (s *memStore) CreateProduct(ctx context.Context, name, url, image string, obs domain.Observation) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &domain.Product{
		ID: s.nextID, Name: name, URL: url, Image: image,
		CurrentPrice: obs.Price, PriceHistory: domain.History{obs}, CreatedAt: obs.Date,
	}
	s.products[p.ID] = p
	clone := *p
	return &clone, nil
}

func (s *memStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Product{}
	for id := int64(1); id <= s.nextID; id++ {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	for aid, a := range s.alerts {
		if a.ProductID == id {
			delete(s.alerts, aid)
		}
	}
	return nil
}

func (s *memStore) AppendObservation(ctx context.Context, productID int64, obs domain.Observation) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.PriceHistory = append(p.PriceHistory, obs)
	p.CurrentPrice = obs.Price
	clone := *p
	return &clone, nil
}

func (s *memStore) Observations(ctx context.Context, productID int64) (domain.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append(domain.History{}, p.PriceHistory...), nil
}

func (s *memStore) CreateAlert(ctx context.Context, productID int64, email string, threshold float64) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a := &domain.Alert{ID: s.nextID, ProductID: productID, Email: email, Threshold: threshold}
	s.alerts[a.ID] = a
	clone := *a
	return &clone, nil
}

func (s *memStore) PendingAlerts(ctx context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Alert{}
	for id := int64(1); id <= s.nextID; id++ {
		if a, ok := s.alerts[id]; ok && !a.Sent {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) MarkAlertSent(ctx context.Context, alertID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return storage.ErrNotFound
	}
	a.Sent = true
	return nil
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) CountProducts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products), nil
}

// stubPublisher records published events
type stubPublisher struct {
	mu      sync.Mutex
	events  []string
	trimmed int
	pubErr  error
}

func (p *stubPublisher) Publish(key string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pubErr != nil {
		return p.pubErr
	}
	p.events = append(p.events, key+":"+string(message))
	return nil
}

func (p *stubPublisher) TrimStreams() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trimmed++
	return nil
}

func (p *stubPublisher) Close() error { return nil }

// stubNotifier records sent emails
type stubNotifier struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (n *stubNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, to+"|"+subject)
	return nil
}

func TestTrackUnsupportedPlatform(t *testing.T) {
	tr := New(newMemStore(), newStubFetcher(), nil, nil, &stubNotifier{})

	_, err := tr.Track(context.Background(), "https://www.ebay.com/itm/123")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestTrackCreatesProductWithFirstObservation(t *testing.T) {
	url := "https://www.amazon.in/dp/B0TEST"
	static := newStubFetcher()
	static.pages[url] = amazonPage("Noise Smartwatch", 1999)

	store := newMemStore()
	pub := &stubPublisher{}
	tr := New(store, static, nil, pub, &stubNotifier{})

	p, err := tr.Track(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Noise Smartwatch", p.Name)
	assert.Equal(t, 1999.0, p.CurrentPrice)
	assert.Equal(t, "https://images.example/p.jpg", p.Image)
	require.Len(t, p.PriceHistory, 1)
	assert.Equal(t, 1999.0, p.PriceHistory[0].Price)

	require.Len(t, pub.events, 1)
	assert.Contains(t, pub.events[0], "Amazon:")
	assert.Contains(t, pub.events[0], `"price":1999`)
}

func TestTrackPropagatesExtractionError(t *testing.T) {
	url := "https://www.amazon.in/dp/B0BARE"
	static := newStubFetcher()
	static.pages[url] = `<html><body><p>nothing here</p></body></html>`

	tr := New(newMemStore(), static, nil, nil, &stubNotifier{})

	_, err := tr.Track(context.Background(), url)
	assert.True(t, apperrors.IsExtraction(err, apperrors.ReasonEmptyTitle))
}

func TestScrapeFallsBackToRenderedFetch(t *testing.T) {
	url := "https://www.flipkart.com/p/item"
	static := newStubFetcher()
	static.pages[url] = pageWithoutPrice("ignored")

	rendered := newStubFetcher()
	rendered.pages[url] = `<html><body>
		<span class="B_NuCI">Rendered Phone</span>
		<div class="_30jeq3">₹24,999</div>
	</body></html>`

	tr := New(newMemStore(), static, rendered, nil, &stubNotifier{})

	p, err := tr.Track(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Rendered Phone", p.Name)
	assert.Equal(t, 24999.0, p.CurrentPrice)

	// The rendered strategy waits for the platform's marker element
	require.Equal(t, 1, rendered.callCount())
	assert.Equal(t, "._30jeq3", rendered.calls[0].WaitSelector)
}

func TestScrapeNoFallbackOnFetchError(t *testing.T) {
	url := "https://www.amazon.in/dp/B0DENIED"
	static := newStubFetcher()
	static.errs[url] = apperrors.NewAccessDenied("Amazon", "blocked")

	rendered := newStubFetcher()
	tr := New(newMemStore(), static, rendered, nil, &stubNotifier{})

	_, err := tr.Track(context.Background(), url)
	assert.Equal(t, apperrors.ErrorTypeAccessDenied, apperrors.TypeOf(err))
	assert.Zero(t, rendered.callCount())
}

func TestScrapeNoFallbackWithoutRenderedFetcher(t *testing.T) {
	url := "https://www.amazon.in/dp/B0SHELL"
	static := newStubFetcher()
	static.pages[url] = pageWithoutPrice("Shell Product")

	tr := New(newMemStore(), static, nil, nil, &stubNotifier{})

	_, err := tr.Track(context.Background(), url)
	assert.True(t, apperrors.IsExtraction(err, apperrors.ReasonNoPriceFound))
}
