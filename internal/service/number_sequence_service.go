package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/straye-as/renovation-api/internal/repository"
	"go.uber.org/zap"
)

// ProjectNumberPrefix prefixes every project number
const ProjectNumberPrefix = "CR"

var projectNumberPattern = regexp.MustCompile(`^[A-Z]{2}-\d{4}-\d{3,}$`)

// NumberSequenceService generates unique, formatted project numbers.
// Sequences are kept per prefix and year and never hand out a number twice.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: CR-2025-001, CR-2025-042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// GenerateProjectNumber returns the next project number for the current year.
// Called with a transaction in ctx, the increment commits or rolls back with it.
func (s *NumberSequenceService) GenerateProjectNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()

	nextSeq, err := s.repo.GetNextNumber(ctx, ProjectNumberPrefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", ProjectNumberPrefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate project number: %w", err)
	}

	// Format: PREFIX-YYYY-NNN (zero-padded to 3 digits)
	number := fmt.Sprintf("%s-%d-%03d", ProjectNumberPrefix, year, nextSeq)

	s.logger.Debug("generated project number",
		zap.String("number", number),
		zap.Int("sequence", nextSeq))

	return number, nil
}

// GetCurrentSequence returns the last issued sequence for a year without
// incrementing it. Returns 0 if no number was issued yet.
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, year int) (int, error) {
	return s.repo.GetCurrentSequence(ctx, ProjectNumberPrefix, year)
}

// ValidateProjectNumber checks that a number follows PREFIX-YYYY-NNN
func ValidateProjectNumber(number string) bool {
	return projectNumberPattern.MatchString(number)
}
