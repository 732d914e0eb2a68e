package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/auth"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/checkout"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/config"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/draft"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/order"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
)

func newAPIClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		api.WithTokenSource(auth.NewStaticToken(cfg.Auth.Token)),
		api.WithLogger(logger),
	)
}

// openDraftStore returns the configured store and a func releasing it.
func openDraftStore(ctx context.Context, cfg *config.Config) (draft.Store, func(), error) {
	switch cfg.Draft.Backend {
	case config.DraftFile:
		return draft.NewFileStore(cfg.Draft.Path), func() {}, nil
	case config.DraftPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := draft.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return draft.NewMemoryStore(), func() {}, nil
	}
}

// newWizard wires a wizard against the configured backend.
func newWizard(ctx context.Context, cfg *config.Config, logger *slog.Logger, items []models.OrderItem, opts ...checkout.Option) (*checkout.Wizard, func(), error) {
	client := newAPIClient(cfg, logger)
	backend := payment.NewBackend(cfg.Env, client, cfg.Payment.ReturnURL)
	poller := payment.NewPoller(backend,
		payment.WithIntervals(cfg.Payment.PollInterval, cfg.Payment.RateLimitedInterval),
		payment.WithLogger(logger),
	)

	store, release, err := openDraftStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]checkout.Option{
		checkout.WithItems(items...),
		checkout.WithDraftStore(store, cfg.Draft.Key),
		checkout.WithLocationSource(client),
		checkout.WithLogger(logger),
	}, opts...)

	w := checkout.New(ctx,
		order.NewSubmitter(client, backend, order.WithLogger(logger)),
		checkout.PaymentPoller(poller),
		opts...,
	)
	return w, func() {
		w.Close()
		release()
	}, nil
}
