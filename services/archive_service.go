package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/game"
	"github.com/thejoltjoker/crowdplay-sub000/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveService persists finished games to Postgres and serves them back as
// results once the live copy in Redis has expired.
type ArchiveService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewArchiveService(db *gorm.DB, logger *logrus.Logger) *ArchiveService {
	return &ArchiveService{db: db, log: logger.WithField("component", "archive")}
}

// Archive stores g. Archiving the same game twice keeps the first copy, so a
// retried task is harmless.
func (s *ArchiveService) Archive(ctx context.Context, g game.Game) error {
	if g.Status != game.StatusFinished {
		return fmt.Errorf("%w: only finished games are archived", game.ErrInvalidState)
	}

	record := NewGameRecord(g)

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var count int64
	if err := tx.Model(&models.GameRecord{}).Where("id = ?", g.ID).Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if count > 0 {
		tx.Rollback()
		s.log.WithField("game_id", g.ID).Info("Game already archived")
		return nil
	}

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"game_id": g.ID, "players": len(record.Players)}).Info("Game archived")
	return nil
}

func (s *ArchiveService) GetResults(ctx context.Context, gameID string) (*models.GameRecord, error) {
	var record models.GameRecord
	err := s.db.WithContext(ctx).Where("id = ?", gameID).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("player_results.rank, player_results.id")
		}).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_records.position")
		}).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByHost returns the host's archived games, newest first, without
// their players and questions.
func (s *ArchiveService) ListByHost(ctx context.Context, hostID string, limit int) ([]models.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []models.GameRecord
	err := s.db.WithContext(ctx).Where("host_id = ?", hostID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteResults removes an archived game for good, along with its players
// and questions.
func (s *ArchiveService) DeleteResults(ctx context.Context, gameID, hostID string) error {
	record, err := s.GetResults(ctx, gameID)
	if err != nil {
		return err
	}
	if record.HostID != hostID {
		return ErrNotHost
	}
	if err := purgeRecord(s.db.WithContext(ctx), gameID); err != nil {
		return err
	}
	s.log.WithField("game_id", gameID).Info("Archived game deleted")
	return nil
}

func purgeRecord(db *gorm.DB, gameID string) error {
	return db.Select(clause.Associations).Delete(&models.GameRecord{ID: gameID}).Error
}

// NewGameRecord converts a finished game into its archive rows.
func NewGameRecord(g game.Game) models.GameRecord {
	record := models.GameRecord{
		ID:            g.ID,
		JoinCode:      g.JoinCode,
		HostID:        g.HostID,
		QuestionCount: len(g.Questions),
		CreatedAt:     g.CreatedAt,
		StartedAt:     g.StartedAt,
		EndedAt:       g.EndedAt,
	}
	if host, ok := game.Host(g); ok {
		record.HostName = host.Name
	}
	if g.StartedAt != nil && len(g.Questions) > 0 {
		record.PlayedCount = g.CurrentQuestionIndex + 1
	}

	for _, rp := range game.RankPlayers(g) {
		record.Players = append(record.Players, models.PlayerResult{
			GameID:   g.ID,
			PlayerID: rp.Player.ID,
			Name:     rp.Player.Name,
			Score:    rp.Player.Score,
			Rank:     rp.Rank,
			JoinedAt: rp.Player.JoinedAt,
		})
	}
	for i, q := range g.Questions {
		record.Questions = append(record.Questions, models.QuestionRecord{
			GameID:        g.ID,
			QuestionID:    q.ID,
			Position:      i,
			Text:          q.Text,
			Options:       append([]string(nil), q.Options...),
			CorrectOption: q.CorrectOption,
			TimeLimit:     q.TimeLimit,
		})
	}
	return record
}
