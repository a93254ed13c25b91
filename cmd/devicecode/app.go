package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wrale/devicecode/internal/logger"
	"github.com/wrale/devicecode/internal/metrics"
	"github.com/wrale/devicecode/internal/tokencache"
	"github.com/wrale/devicecode/pkg/management"
)

// metricsJob groups pushed metrics on the Pushgateway
const metricsJob = "devicecode"

// app holds everything a single command invocation needs
type app struct {
	cfg      Config
	logger   *zap.Logger
	recorder *metrics.Recorder
	redis    *redis.Client
	manager  *management.DeviceCodeManager
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		recorder: metrics.NewRecorder(),
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	tokens, err := a.tokenSource(ctx, httpClient)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	client, err := management.NewManagementClient(&management.Options{
		BaseURL:     cfg.BaseURL,
		TokenSource: tokens,
		HTTPClient:  httpClient,
		Logger:      log,
		Observer:    a.recorder,
		UserAgent:   "devicecode/" + Version,
	})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("creating management client: %w", err)
	}
	a.manager = client.DeviceCode

	return a, nil
}

// tokenSource picks a static token or the client credentials grant,
// optionally shared through Redis
func (a *app) tokenSource(ctx context.Context, httpClient *http.Client) (oauth2.TokenSource, error) {
	if !a.cfg.usesClientCredentials() {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: a.cfg.Token,
			TokenType:   "Bearer",
		}), nil
	}

	cc := &clientcredentials.Config{
		ClientID:       a.cfg.ClientID,
		ClientSecret:   a.cfg.ClientSecret,
		TokenURL:       a.cfg.TokenURL,
		EndpointParams: url.Values{"audience": {a.cfg.Audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	base := cc.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, httpClient))

	if a.cfg.RedisURL == "" {
		return base, nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	a.redis = redis.NewClient(opts)

	cached := tokencache.NewRedisTokenSource(a.redis, base, tokencache.Key(a.cfg.ClientID, a.cfg.Audience), a.logger)
	if err := cached.CheckHealth(ctx); err != nil {
		// The cache is optional, tokens are still fetched directly
		a.logger.Warn("token cache unavailable", zap.Error(err))
	}

	return oauth2.ReuseTokenSource(nil, cached), nil
}

// close pushes metrics and releases connections. Failures are logged
// only, they never change the command result.
func (a *app) close(ctx context.Context) {
	if a.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Timeout)
		if err := a.recorder.Push(pushCtx, a.cfg.PushgatewayURL, metricsJob); err != nil {
			a.logger.Warn("metrics push failed", zap.Error(err))
		}
		cancel()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing Redis connection", zap.Error(err))
		}
	}

	_ = a.logger.Sync()
}
