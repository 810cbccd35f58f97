package repository

import (
	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/domain/ledger"
	"github.com/adforge/adforge/internal/domain/organization"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	postgresRepo "github.com/adforge/adforge/internal/repository/postgres"
)

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return postgresRepo.NewLedgerRepository(db, logger)
}

func NewOrganizationRepository(db *postgres.DB, logger *logger.Logger) organization.Repository {
	return postgresRepo.NewOrganizationRepository(db, logger)
}

func NewJobRepository(db *postgres.DB, logger *logger.Logger) job.Repository {
	return postgresRepo.NewJobRepository(db, logger)
}
