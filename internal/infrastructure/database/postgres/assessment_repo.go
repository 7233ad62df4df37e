package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fraud-risk-engine/internal/domain/risk"
)

// AssessmentModel is the persistence model for risk assessments
type AssessmentModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID   string          `gorm:"type:varchar(64);index"`
	UserID          string          `gorm:"type:varchar(64);index:idx_assessments_user"`
	TransactionType string          `gorm:"type:varchar(32)"`
	Location        string          `gorm:"type:varchar(64)"`
	RiskScore       decimal.Decimal `gorm:"type:decimal(5,4)"`
	RiskCategory    string          `gorm:"type:varchar(16)"`
	AnomalyScore    decimal.Decimal `gorm:"type:decimal(7,4)"`
	IsAnomaly       bool
	FraudLabel      int
	ModelVersion    string `gorm:"type:varchar(32)"`
	Timestamp       string `gorm:"type:varchar(40)"`
	CreatedAt       time.Time
}

// TableName specifies the table name for AssessmentModel
func (AssessmentModel) TableName() string {
	return "assessments"
}

func toModel(a *risk.Assessment) *AssessmentModel {
	return &AssessmentModel{
		ID:              a.ID,
		TransactionID:   a.TransactionID,
		UserID:          a.UserID,
		TransactionType: a.TransactionType,
		Location:        a.Location,
		RiskScore:       a.RiskScore,
		RiskCategory:    string(a.RiskCategory),
		AnomalyScore:    a.AnomalyScore,
		IsAnomaly:       a.IsAnomaly,
		FraudLabel:      a.FraudLabel,
		ModelVersion:    a.ModelVersion,
		Timestamp:       a.Timestamp,
	}
}

func toEntity(m *AssessmentModel) *risk.Assessment {
	return &risk.Assessment{
		ID:              m.ID,
		TransactionID:   m.TransactionID,
		UserID:          m.UserID,
		TransactionType: m.TransactionType,
		Location:        m.Location,
		RiskScore:       m.RiskScore,
		RiskCategory:    risk.Category(m.RiskCategory),
		AnomalyScore:    m.AnomalyScore,
		IsAnomaly:       m.IsAnomaly,
		FraudLabel:      m.FraudLabel,
		ModelVersion:    m.ModelVersion,
		Timestamp:       m.Timestamp,
	}
}

// HistoryStore persists assessments in PostgreSQL
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a PostgreSQL-backed history store
func NewHistoryStore(client *Client) *HistoryStore {
	return &HistoryStore{db: client.DB()}
}

// Append stores a new assessment
func (s *HistoryStore) Append(ctx context.Context, a *risk.Assessment) error {
	model := toModel(a)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}
	return nil
}

// ListByUser returns a user's assessments oldest first
func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]*risk.Assessment, error) {
	var models []AssessmentModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	assessments := make([]*risk.Assessment, 0, len(models))
	for i := range models {
		assessments = append(assessments, toEntity(&models[i]))
	}
	return assessments, nil
}

// List returns all assessments oldest first
func (s *HistoryStore) List(ctx context.Context) ([]*risk.Assessment, error) {
	var models []AssessmentModel
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	assessments := make([]*risk.Assessment, 0, len(models))
	for i := range models {
		assessments = append(assessments, toEntity(&models[i]))
	}
	return assessments, nil
}
