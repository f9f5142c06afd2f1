package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lafavorita/backend/internal/domain"
)

var ErrInvalidDocument = errors.New("invalid backup document")

func (s *Service) ExportBackup(ctx context.Context) (domain.Backup, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Backup{}, err
	}
	doc, err := s.repo.Export(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	doc.ExportDate = s.now().Format(time.RFC3339)

	s.logAudit(ctx, "backup_export", "backup", "", fmt.Sprintf("products=%d,sales=%d,users=%d", len(doc.Products), len(doc.Sales), len(doc.Users)))
	return doc, nil
}

// ImportBackup overwrites each collection present in raw; missing
// collections are left alone.
func (s *Service) ImportBackup(ctx context.Context, raw []byte) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}

	var doc domain.Backup
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Products == nil && doc.Sales == nil && doc.Users == nil {
		return fmt.Errorf("%w: no products, sales or users found", ErrInvalidDocument)
	}
	if err := s.repo.Import(ctx, doc); err != nil {
		return err
	}
	if doc.Users != nil {
		s.upgradeCredentials(ctx)
	}

	s.logAudit(ctx, "backup_import", "backup", "", fmt.Sprintf("products=%t,sales=%t,users=%t", doc.Products != nil, doc.Sales != nil, doc.Users != nil))
	return nil
}

// ResetData restores the seed catalog and accounts and clears all sales.
func (s *Service) ResetData(ctx context.Context) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	s.upgradeCredentials(ctx)
	s.logAudit(ctx, "data_reset", "backup", "", "")
	return nil
}

func (s *Service) upgradeCredentials(ctx context.Context) {
	if s.credentials == nil {
		return
	}
	if err := s.credentials.UpgradeLegacyCredentials(ctx); err != nil {
		s.log.Error().Err(err).Msg("credential upgrade after restore failed")
	}
}
