package service

import (
	"context"
	"errors"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

// IPWhitelistService manages CIDR allow-list entries. Matching is fail-open
// on storage errors only for the middleware caller to decide; the service
// itself just answers membership.
type IPWhitelistService struct {
	entries IPWhitelistStore
	log     zerolog.Logger
}

func NewIPWhitelistService(entries IPWhitelistStore, log zerolog.Logger) *IPWhitelistService {
	return &IPWhitelistService{entries: entries, log: log}
}

type CreateIPWhitelistInput struct {
	CIDR        string
	Description *string
	IsActive    *bool
}

func (s *IPWhitelistService) Create(ctx context.Context, input CreateIPWhitelistInput) (models.IPWhitelistEntry, error) {
	cidr, err := normalizeCIDR(input.CIDR)
	if err != nil {
		return models.IPWhitelistEntry{}, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	return s.entries.Create(ctx, models.IPWhitelistEntry{
		ID:          ids.New(),
		CIDR:        cidr,
		Description: input.Description,
		IsActive:    isActive,
	})
}

func (s *IPWhitelistService) FindAll(ctx context.Context) ([]models.IPWhitelistEntry, error) {
	return s.entries.List(ctx)
}

func (s *IPWhitelistService) FindOne(ctx context.Context, id string) (models.IPWhitelistEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrIPWhitelistEntryNotFound) {
			return models.IPWhitelistEntry{}, apperr.NotFound("ip whitelist entry not found")
		}
		return models.IPWhitelistEntry{}, err
	}
	return entry, nil
}

type UpdateIPWhitelistInput struct {
	CIDR        *string
	Description *string
	IsActive    *bool
}

func (s *IPWhitelistService) Update(ctx context.Context, id string, input UpdateIPWhitelistInput) (models.IPWhitelistEntry, error) {
	entry, err := s.FindOne(ctx, id)
	if err != nil {
		return models.IPWhitelistEntry{}, err
	}

	if input.CIDR != nil {
		cidr, err := normalizeCIDR(*input.CIDR)
		if err != nil {
			return models.IPWhitelistEntry{}, err
		}
		entry.CIDR = cidr
	}
	if input.Description != nil {
		entry.Description = input.Description
	}
	if input.IsActive != nil {
		entry.IsActive = *input.IsActive
	}

	return s.entries.Update(ctx, entry)
}

func (s *IPWhitelistService) Delete(ctx context.Context, id string) error {
	if _, err := s.FindOne(ctx, id); err != nil {
		return err
	}
	return s.entries.Delete(ctx, id)
}

// IsAllowed reports whether the address falls inside any active entry. An
// unparsable address is never allowed.
func (s *IPWhitelistService) IsAllowed(ctx context.Context, ipAddress string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ipAddress))
	if err != nil {
		return false, nil
	}
	addr = addr.Unmap()

	entries, err := s.entries.ListActive(ctx)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		prefix, err := netip.ParsePrefix(entry.CIDR)
		if err != nil {
			s.log.Warn().Str("cidr", entry.CIDR).Msg("skipping unparsable whitelist entry")
			continue
		}
		if prefix.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

// normalizeCIDR accepts a bare address or a prefix and returns the canonical
// prefix form, so "10.0.0.1" becomes "10.0.0.1/32".
func normalizeCIDR(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.BadRequest("cidr is required")
	}

	if !strings.Contains(raw, "/") {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return "", apperr.BadRequest("invalid ip address")
		}
		return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()).String(), nil
	}

	prefix, err := netip.ParsePrefix(raw)
	if err != nil {
		return "", apperr.BadRequest("invalid cidr range")
	}
	return prefix.Masked().String(), nil
}
