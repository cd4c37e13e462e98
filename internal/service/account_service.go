package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/publishflow/configs"
	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/publisher"
	"github.com/maheshrc27/publishflow/internal/repository"
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
	Validate(ctx context.Context, userID, accountID int64) (bool, error)
}

type accountService struct {
	cfg      config.Config
	sa       repository.SocialAccountRepository
	registry *publisher.Registry
}

func NewAccountService(cfg config.Config, sa repository.SocialAccountRepository, registry *publisher.Registry) AccountService {
	return &accountService{
		cfg:      cfg,
		sa:       sa,
		registry: registry,
	}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *accountService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.sa.Remove(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Error removing account info")
	}

	return nil
}

func (s *accountService) Validate(ctx context.Context, userID, accountID int64) (bool, error) {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return false, err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return false, err
	}

	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil || account == nil {
		return false, fmt.Errorf("Unable to get social account info")
	}

	pub := s.registry.Get(s.cfg.DefaultPublisher)
	if pub == nil {
		return false, errors.New("no publisher configured")
	}

	return pub.ValidateAccount(ctx, account), nil
}
