package faucet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/indexing/metrics"
	"github.com/h1labs/labs/internal/infra/storage"
)

var (
	ErrDisabled       = errors.New("faucet is disabled")
	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrCooldown       = errors.New("faucet cooldown active")
)

// CooldownError carries how long the caller must wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrCooldown, e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Config controls payouts.
type Config struct {
	Amount   *big.Int
	Cooldown time.Duration
}

// Service hands out test tokens, at most once per address per cooldown window.
type Service struct {
	cfg       Config
	cooldown  Cooldown
	dispenser Dispenser
	claims    storage.FaucetRepository
	log       *slog.Logger
}

// NewService builds a faucet. A nil dispenser yields a service that refuses every claim with ErrDisabled.
func NewService(cfg Config, cooldown Cooldown, dispenser Dispenser, claims storage.FaucetRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		cooldown:  cooldown,
		dispenser: dispenser,
		claims:    claims,
		log:       log.With("component", "faucet"),
	}
}

// Enabled reports whether claims can be paid out.
func (s *Service) Enabled() bool {
	return s.dispenser != nil
}

// Claim pays out to address. The cooldown is only consumed when the payout is sent.
func (s *Service) Claim(ctx context.Context, address string) (*domain.FaucetClaim, error) {
	if !s.Enabled() {
		metrics.FaucetClaims.WithLabelValues("disabled").Inc()
		return nil, ErrDisabled
	}
	if !common.IsHexAddress(address) {
		metrics.FaucetClaims.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	to := common.HexToAddress(address)
	key := strings.ToLower(to.Hex())

	ok, retryAfter, err := s.cooldown.Reserve(ctx, key, s.cfg.Cooldown)
	if err != nil {
		metrics.FaucetClaims.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reserve cooldown: %w", err)
	}
	if !ok {
		metrics.FaucetClaims.WithLabelValues("cooldown").Inc()
		return nil, &CooldownError{RetryAfter: retryAfter}
	}

	txHash, err := s.dispenser.Dispense(ctx, to, s.cfg.Amount)
	if err != nil {
		if relErr := s.cooldown.Release(context.WithoutCancel(ctx), key); relErr != nil {
			s.log.Error("Failed to release cooldown", "address", key, "error", relErr)
		}
		metrics.FaucetClaims.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("dispense: %w", err)
	}

	claim := &domain.FaucetClaim{
		ID:      uuid.NewString(),
		Address: key,
		Amount:  s.cfg.Amount.String(),
		TxHash:  txHash.Hex(),
	}
	// A failed insert does not undo the payout.
	if err := s.claims.Save(context.WithoutCancel(ctx), claim); err != nil {
		s.log.Error("Failed to record faucet claim", "address", key, "tx", claim.TxHash, "error", err)
	}

	metrics.FaucetClaims.WithLabelValues("success").Inc()
	s.log.Info("Faucet claim paid", "address", key, "tx", claim.TxHash, "amount", claim.Amount)
	return claim, nil
}

// History lists past claims for address.
func (s *Service) History(ctx context.Context, address string, page storage.Page) ([]*domain.FaucetClaim, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return s.claims.ListByAddress(ctx, strings.ToLower(common.HexToAddress(address).Hex()), page)
}
