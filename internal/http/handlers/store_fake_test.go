package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sellorahq/sellora-be/internal/models"
	"github.com/sellorahq/sellora-be/internal/storage"
)

// memStore is an in-memory stand-in for the Postgres store, mirroring its
// uniqueness and compare-and-clear semantics.
type memStore struct {
	mu            sync.Mutex
	users         map[int64]models.User
	byEmail       map[string]int64
	byUsername    map[string]int64
	profiles      map[int64]models.Profile
	products      map[int64]models.Product
	nextUserID    int64
	nextProductID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[int64]models.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
		profiles:   make(map[int64]models.Profile),
		products:   make(map[int64]models.Product),
	}
}

func (s *memStore) CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[user.Username]; ok {
		return models.User{}, models.Profile{}, storage.ErrDuplicateUsername
	}
	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return models.User{}, models.Profile{}, storage.ErrDuplicateEmail
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.Email = email
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	s.byUsername[user.Username] = user.ID

	profile.UserID = user.ID
	if profile.LoginType == "" {
		profile.LoginType = models.LoginTypeEmail
	}
	s.profiles[user.ID] = profile
	return user, profile, nil
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *memStore) ProfileByUserID(ctx context.Context, userID int64) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (s *memStore) StoreOTP(ctx context.Context, userID int64, code string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return storage.ErrNotFound
	}
	profile.OTP = &code
	profile.OTPCreatedAt = &issuedAt
	s.profiles[userID] = profile
	return nil
}

func (s *memStore) ConsumeOTP(ctx context.Context, userID int64, code string, markVerified bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok || profile.OTP == nil || *profile.OTP != code {
		return false, nil
	}
	profile.OTP = nil
	profile.OTPCreatedAt = nil
	if markVerified {
		profile.Verified = true
	}
	s.profiles[userID] = profile
	return true, nil
}

func (s *memStore) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return models.Product{}, storage.ErrDuplicateSKU
		}
	}
	s.nextProductID++
	product.ID = s.nextProductID
	s.products[product.ID] = product
	return product, nil
}

func (s *memStore) ProductsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []models.Product
	for _, p := range s.products {
		if p.UserID == userID {
			owned = append(owned, p)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (s *memStore) ProductByID(ctx context.Context, userID, productID int64) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok || product.UserID != userID {
		return models.Product{}, storage.ErrNotFound
	}
	return product, nil
}

func (s *memStore) UpdateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[product.ID]
	if !ok || existing.UserID != product.UserID {
		return models.Product{}, storage.ErrNotFound
	}
	for _, other := range s.products {
		if other.ID != product.ID && other.SKU == product.SKU {
			return models.Product{}, storage.ErrDuplicateSKU
		}
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *memStore) DeleteProduct(ctx context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok || product.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *memStore) HasProductNamed(ctx context.Context, userID int64, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.UserID == userID && p.ProductName == name {
			return true, nil
		}
	}
	return false, nil
}

// outstandingOTP returns the challenge currently stored for the user.
func (s *memStore) outstandingOTP(userID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok || profile.OTP == nil {
		return "", false
	}
	return *profile.OTP, true
}

// captureMailer records sent messages instead of delivering them.
type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
