package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/store"
)

var one = decimal.NewFromInt(1)

func (s *Service) Settings(_ context.Context) domain.BusinessSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings wholesale. The VAT rate is a fraction
// in [0, 1).
func (s *Service) UpdateSettings(ctx context.Context, settings domain.BusinessSettings) (domain.BusinessSettings, error) {
	settings.BusinessName = strings.TrimSpace(settings.BusinessName)
	if settings.BusinessName == "" {
		return domain.BusinessSettings{}, fmt.Errorf("%w: business name required", domain.ErrInvalidSettings)
	}
	if settings.VATRate.IsNegative() || settings.VATRate.GreaterThanOrEqual(one) {
		return domain.BusinessSettings{}, fmt.Errorf("%w: vat rate %s out of range", domain.ErrInvalidSettings, settings.VATRate)
	}

	if err := s.lockWrite(); err != nil {
		return domain.BusinessSettings{}, err
	}
	defer s.mu.Unlock()

	previous := s.settings
	s.settings = settings
	if err := s.persist(ctx, store.CollectionSettings); err != nil {
		s.settings = previous
		return domain.BusinessSettings{}, err
	}
	return settings, nil
}
