// services/award_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"recycle-rewards-system/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AwardRules maps a classifier label to the points a scan of it earns.
type AwardRules map[string]int64

// DefaultAwardRules covers the labels of the garbage-classification model.
// "trash" is not recyclable and earns nothing.
var DefaultAwardRules = AwardRules{
	"cardboard": 10,
	"paper":     10,
	"glass":     15,
	"plastic":   15,
	"metal":     20,
	"trash":     0,
}

// PointsFor returns the award for label; unknown labels earn nothing.
func (r AwardRules) PointsFor(label string) int64 {
	return r[strings.ToLower(strings.TrimSpace(label))]
}

// ScanArchive keeps a copy of scanned images and returns their public URL.
type ScanArchive interface {
	Put(ctx context.Context, key string, image []byte, contentType string) (string, error)
}

// ClassificationResult is what a scan returns to the client.
type ClassificationResult struct {
	Label         string          `json:"predicted_class"`
	PointsAwarded int64           `json:"points_awarded"`
	Balance       *models.Balance `json:"balance,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
}

// AwardService credits points for recycling actions and records them.
type AwardService struct {
	Accounts   *AccountService
	History    *HistoryService
	Classifier Classifier
	Rules      AwardRules
	Archive    ScanArchive
	Log        *zap.SugaredLogger
	Metrics    *Metrics
}

func NewAwardService(accounts *AccountService, history *HistoryService, classifier Classifier, archive ScanArchive, log *zap.SugaredLogger, m *Metrics) *AwardService {
	return &AwardService{
		Accounts:   accounts,
		History:    history,
		Classifier: classifier,
		Rules:      DefaultAwardRules,
		Archive:    archive,
		Log:        loggerOrNop(log),
		Metrics:    metricsOrDefault(m),
	}
}

// AwardPoints credits amount and then writes the accrual event. A failed
// credit returns before anything is recorded.
func (s *AwardService) AwardPoints(ctx context.Context, userID string, amount int64) (models.Balance, error) {
	bal, err := s.Accounts.Credit(ctx, userID, amount)
	if err != nil {
		return models.Balance{}, err
	}
	s.History.Record(ctx, NormalizeUserID(userID), models.LedgerActionAccrual,
		fmt.Sprintf("+%d points for recycling", amount))
	return bal, nil
}

// ClassifyAndAward labels the image and, when userID is set and the label
// is worth points, credits them. Anything that goes wrong inside the
// classifier becomes ErrClassificationFailed.
func (s *AwardService) ClassifyAndAward(ctx context.Context, userID string, image []byte, contentType string) (*ClassificationResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrClassificationFailed)
	}
	if s.Classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", ErrClassificationFailed)
	}

	label, err := s.classify(ctx, image)
	if err != nil {
		s.Log.Warnf("⚠️ Classification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	s.Metrics.Classifications.WithLabelValues(label).Inc()

	result := &ClassificationResult{Label: label}

	if s.Archive != nil {
		key := fmt.Sprintf("scans/%s/%s%s", label, uuid.NewString(), imageExt(contentType))
		url, err := s.Archive.Put(ctx, key, image, contentType)
		if err != nil {
			s.Log.Warnf("⚠️ Failed to archive scan %s: %v", key, err)
		} else {
			result.ImageURL = url
		}
	}

	if strings.TrimSpace(userID) == "" {
		return result, nil
	}
	points := s.Rules.PointsFor(label)
	if points <= 0 {
		return result, nil
	}
	bal, err := s.AwardPoints(ctx, userID, points)
	if err != nil {
		return nil, err
	}
	result.PointsAwarded = points
	result.Balance = &bal
	return result, nil
}

// classify shields the caller from a misbehaving Classifier implementation.
func (s *AwardService) classify(ctx context.Context, image []byte) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	label, err = s.Classifier.Classify(ctx, image)
	if err != nil {
		return "", err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("classifier returned an empty label")
	}
	return label, nil
}

func imageExt(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
