// Package identifier issues, retires and migrates registry identifiers.
package identifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ServiceConfig contains configuration for Service
type ServiceConfig struct {
	MaxRetries int
	PadWidth   int
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxRetries: 10,
		PadWidth:   4,
	}
}

// Service is the identifier registry
type Service struct {
	repo   identifier.Repository
	legacy identifier.LegacyReader
	logger *zap.Logger

	maxRetries int
	padWidth   int
}

// NewService creates a new identifier Service. legacy may be nil when
// RegisterLegacy is not used.
func NewService(repo identifier.Repository, legacy identifier.LegacyReader, logger *zap.Logger, config ServiceConfig) *Service {
	defaults := DefaultServiceConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.PadWidth <= 0 {
		config.PadWidth = defaults.PadWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		legacy:     legacy,
		logger:     logger,
		maxRetries: config.MaxRetries,
		padWidth:   config.PadWidth,
	}
}

// Issue reserves the next free prefix-#### value for entityType. The value
// is committed to the registry before it is returned.
func (s *Service) Issue(ctx context.Context, entityType identifier.EntityType, prefix string) (string, error) {
	if !entityType.IsValid() {
		return "", shared.ErrInvalidInput.Wrap(fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
	if err := identifier.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	// floor keeps a concurrently taken value from being proposed twice
	floor := 0
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		values, err := s.repo.ListValues(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("list %s identifiers: %w", prefix, err)
		}
		n := max(identifier.MaxSuffix(values, prefix), floor) + 1
		floor = n
		candidate := identifier.Format(prefix, n, s.padWidth)

		exists, err := s.repo.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check identifier %s: %w", candidate, err)
		}
		if exists {
			s.logger.Debug("Identifier candidate taken",
				zap.String("candidate", candidate),
				zap.Int("attempt", attempt))
			continue
		}

		record, err := identifier.NewRecord(candidate, entityType, "", "")
		if err != nil {
			return "", err
		}
		if err := s.repo.Create(ctx, record); err != nil {
			if errors.Is(err, identifier.ErrDuplicateValue) {
				s.logger.Debug("Identifier insert collided",
					zap.String("candidate", candidate),
					zap.Int("attempt", attempt))
				continue
			}
			return "", fmt.Errorf("register identifier %s: %w", candidate, err)
		}

		s.logger.Info("Identifier issued",
			zap.String("value", candidate),
			zap.String("entity_type", string(entityType)),
			zap.Int("attempts", attempt))
		return candidate, nil
	}

	s.logger.Error("Identifier issuance exhausted",
		zap.String("prefix", prefix),
		zap.Int("max_retries", s.maxRetries))
	return "", identifier.ErrIdentifierExhausted.Wrap(
		fmt.Sprintf("no free %s identifier after %d attempts", prefix, s.maxRetries), nil)
}

// Retire marks value retired. It stays reserved and is never reissued.
func (s *Service) Retire(ctx context.Context, value string) error {
	record, err := s.repo.FindByValue(ctx, value)
	if err != nil {
		return err
	}
	if err := record.Retire(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("retire identifier %s: %w", value, err)
	}
	s.logger.Info("Identifier retired", zap.String("value", value))
	return nil
}

// Exists reports whether value is registered, active or retired.
func (s *Service) Exists(ctx context.Context, value string) (bool, error) {
	return s.repo.Exists(ctx, value)
}

// RegisterLegacy records every existing code found in sources. Values
// already registered are skipped, so running it twice changes nothing.
// An empty sources slice means DefaultLegacySources.
func (s *Service) RegisterLegacy(ctx context.Context, sources []identifier.LegacySource) (*identifier.MigrationResult, error) {
	if s.legacy == nil {
		return nil, shared.ErrInvalidState.Wrap("legacy reader not configured", nil)
	}
	if len(sources) == 0 {
		sources = identifier.DefaultLegacySources()
	}

	result := &identifier.MigrationResult{Errors: []identifier.SourceError{}}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !src.EntityType.IsValid() {
			result.Errors = append(result.Errors, identifier.SourceError{
				Collection: src.Collection,
				Error:      fmt.Sprintf("unknown entity type %q", src.EntityType),
			})
			continue
		}
		if src.Collection == "" {
			src.Collection = src.EntityType.Collection()
		}
		if src.FieldPath == "" {
			src.FieldPath = identifier.DefaultFieldPath
		}

		values, err := s.legacy.ListValues(ctx, src.Collection, src.FieldPath)
		if err != nil {
			s.logger.Warn("Failed to read legacy identifiers",
				zap.String("collection", src.Collection),
				zap.Error(err))
			result.Errors = append(result.Errors, identifier.SourceError{Collection: src.Collection, Error: err.Error()})
			continue
		}
		for _, v := range values {
			s.registerOne(ctx, src, v, result)
		}
	}

	s.logger.Info("Legacy identifier registration completed",
		zap.Int("registered", result.Registered),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *Service) registerOne(ctx context.Context, src identifier.LegacySource, value string, result *identifier.MigrationResult) {
	fail := func(err error) {
		result.Errors = append(result.Errors, identifier.SourceError{
			Collection: src.Collection,
			Value:      value,
			Error:      err.Error(),
		})
	}

	exists, err := s.repo.Exists(ctx, value)
	if err != nil {
		fail(err)
		return
	}
	if exists {
		result.Skipped++
		return
	}
	record, err := identifier.NewRecord(value, src.EntityType, src.Collection, src.FieldPath)
	if err != nil {
		fail(err)
		return
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, identifier.ErrDuplicateValue) {
			result.Skipped++
			return
		}
		fail(err)
		return
	}
	result.Registered++
}
