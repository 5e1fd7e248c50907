package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pensionio/backoffice/internal/domain"
	"go.uber.org/zap"
)

func newTestSubscriptionService(t *testing.T, repo *fakeSubscriptionRepo) *SubscriptionService {
	t.Helper()

	svc, err := NewSubscriptionService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}
	return svc
}

func TestSubscriptionServiceRegister(t *testing.T) {
	t.Parallel()

	var stored *domain.Subscription
	repo := &fakeSubscriptionRepo{
		createFunc: func(ctx context.Context, s *domain.Subscription) error {
			stored = s
			return nil
		},
	}
	svc := newTestSubscriptionService(t, repo)

	sub, err := svc.Register(context.Background(), "https://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 5, 20)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if !strings.HasPrefix(sub.Secret, "whsec_") {
		t.Errorf("secret %q missing whsec_ prefix", sub.Secret)
	}
	// 32 random bytes hex encoded.
	if len(sub.Secret) != len("whsec_")+64 {
		t.Errorf("secret length = %d, want %d", len(sub.Secret), len("whsec_")+64)
	}
	if !sub.Active {
		t.Error("new subscription must start active")
	}
	if sub.RetryCount != 5 || sub.TimeoutSeconds != 20 {
		t.Errorf("retryCount=%d timeoutSeconds=%d, want 5 and 20", sub.RetryCount, sub.TimeoutSeconds)
	}
	if stored == nil || stored.Secret != sub.Secret {
		t.Error("persisted subscription does not match returned one")
	}
}

func TestSubscriptionServiceRegisterDefaults(t *testing.T) {
	t.Parallel()

	svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{})

	sub, err := svc.Register(context.Background(), "https://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 0, 0)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if sub.RetryCount != domain.DefaultRetryCount {
		t.Errorf("retryCount = %d, want default %d", sub.RetryCount, domain.DefaultRetryCount)
	}
	if sub.TimeoutSeconds != domain.DefaultTimeoutSeconds {
		t.Errorf("timeoutSeconds = %d, want default %d", sub.TimeoutSeconds, domain.DefaultTimeoutSeconds)
	}
}

func TestSubscriptionServiceRegisterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		events  []domain.EventType
		retries int
		timeout int
	}{
		{"plain http", "http://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 3, 10},
		{"not a url", "hooks.example.com", []domain.EventType{domain.EventClaimApproved}, 3, 10},
		{"blank url", "   ", []domain.EventType{domain.EventClaimApproved}, 3, 10},
		{"no events", "https://hooks.example.com/pension", nil, 3, 10},
		{"unknown event", "https://hooks.example.com/pension", []domain.EventType{"CLAIM_MISFILED"}, 3, 10},
		{"retry count too high", "https://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 50, 10},
		{"timeout too high", "https://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 3, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{})

			_, err := svc.Register(context.Background(), tt.url, tt.events, tt.retries, tt.timeout)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSubscriptionServiceSecretsAreUnique(t *testing.T) {
	t.Parallel()

	svc := newTestSubscriptionService(t, &fakeSubscriptionRepo{})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		sub, err := svc.Register(context.Background(), "https://hooks.example.com/pension", []domain.EventType{domain.EventClaimApproved}, 3, 10)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if seen[sub.Secret] {
			t.Fatal("duplicate secret generated")
		}
		seen[sub.Secret] = true
	}
}

func TestSubscriptionServiceUnregister(t *testing.T) {
	t.Parallel()

	deleted := ""
	repo := &fakeSubscriptionRepo{
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestSubscriptionService(t, repo)

	if err := svc.Unregister(context.Background(), " sub-1 "); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if deleted != "sub-1" {
		t.Errorf("deleted id = %q, want sub-1", deleted)
	}

	if err := svc.Unregister(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Unregister(blank) error = %v, want ErrValidation", err)
	}
}
