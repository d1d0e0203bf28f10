package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/internal/broker"
	"github.com/casualjim/latravels/internal/config"
	"github.com/casualjim/latravels/internal/executor"
	"github.com/casualjim/latravels/internal/httpapi"
	"github.com/casualjim/latravels/internal/notify"
	"github.com/casualjim/latravels/internal/shell"
	"github.com/casualjim/latravels/internal/store"
	"github.com/casualjim/latravels/payment"
	"github.com/casualjim/latravels/pkg/natsx"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/casualjim/latravels/pkg/tprl"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/reasoning/langchain"
	oaireasoner "github.com/casualjim/latravels/reasoning/openai"
	"github.com/casualjim/latravels/session"
	"github.com/casualjim/latravels/tool"
	"github.com/k0kubun/pp/v3"
	"github.com/openai/openai-go/option"
	"github.com/phsym/zeroslog"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

const (
	sessionKeyPrefix  = "latravels:session:"
	snapshotKeyPrefix = "latravels:conversation:"
)

// app builds the components a command needs from the configuration and closes them on exit.
type app struct {
	cfg     *config.Config
	closers []func() error

	broker   broker.Broker
	redis    *redis.Client
	temporal client.Client
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)
	return &app{cfg: cfg}, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: lvl}),
	))
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", slogx.Error(err))
		}
	}
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) reasoner() (reasoning.Reasoner, error) {
	oc := a.cfg.OpenAI
	switch a.cfg.Reasoner {
	case config.ReasonerLangchain:
		return langchain.NewOpenAI(oc.Model, oc.APIKey, oc.BaseURL)
	default:
		var opts []option.RequestOption
		if oc.APIKey != "" {
			opts = append(opts, option.WithAPIKey(oc.APIKey))
		}
		if oc.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(oc.BaseURL))
		}
		return oaireasoner.New(oc.Model, opts...), nil
	}
}

func (a *app) charger() payment.Charger {
	if a.cfg.Payment == config.PaymentStripe {
		return payment.NewStripe(a.cfg.Stripe.APIKey)
	}
	slog.Warn("using the fake payment processor, no money will move")
	return payment.NewFake()
}

func (a *app) toolbox() (*tool.Toolbox, error) {
	var options []tool.ToolboxOption
	if len(a.cfg.Kafka.Brokers) > 0 {
		producer, err := notify.NewKafka(strings.Join(a.cfg.Kafka.Brokers, ","), a.cfg.Kafka.BookingTopic)
		if err != nil {
			return nil, err
		}
		a.onClose(producer.Close)
		options = append(options, tool.WithNotifier(producer))
	}
	return tool.NewToolbox(
		airline.NewValidator(nil),
		airline.NewGenerator(nil),
		airline.NewPurchaser(a.charger()),
		options...,
	)
}

func (a *app) eventBroker() (broker.Broker, error) {
	if a.broker != nil {
		return a.broker, nil
	}
	if a.cfg.NATS.URL == "" {
		a.broker = broker.Local()
		return a.broker, nil
	}
	nc, err := natsx.NewClient(a.cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	a.onClose(func() error { nc.Close(); return nil })
	a.broker = broker.NATS(nc)
	return a.broker, nil
}

func (a *app) redisClient() *redis.Client {
	if a.cfg.Redis.Addr == "" {
		return nil
	}
	if a.redis == nil {
		a.redis = store.NewRedisClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		a.onClose(a.redis.Close)
	}
	return a.redis
}

func (a *app) temporalClient() (client.Client, error) {
	if a.temporal != nil {
		return a.temporal, nil
	}
	c, err := tprl.NewClient(tprl.Options{HostPort: a.cfg.Temporal.Address, Namespace: a.cfg.Temporal.Namespace})
	if err != nil {
		return nil, err
	}
	a.onClose(func() error { c.Close(); return nil })
	a.temporal = c
	return c, nil
}

func (a *app) conversations() (executor.Conversations, error) {
	if a.cfg.Executor == config.ExecutorTemporal {
		c, err := a.temporalClient()
		if err != nil {
			return nil, err
		}
		options := []executor.ProxyOption{executor.WithWorkflowStepTimeout(a.cfg.StepTimeout)}
		if rc := a.redisClient(); rc != nil {
			options = append(options, executor.WithImportedSnapshots(a.snapshotStore(rc)))
		}
		return executor.NewTemporalProxy(c, a.cfg.Temporal.TaskQueue, options...)
	}

	r, err := a.reasoner()
	if err != nil {
		return nil, err
	}
	tb, err := a.toolbox()
	if err != nil {
		return nil, err
	}
	b, err := a.eventBroker()
	if err != nil {
		return nil, err
	}
	options := []executor.Option{
		executor.WithBroker(b),
		executor.WithStepTimeout(a.cfg.StepTimeout),
	}
	if rc := a.redisClient(); rc != nil {
		options = append(options, executor.WithSnapshots(a.snapshotStore(rc)))
	}
	l, err := executor.NewLocal(r, tb, options...)
	if err != nil {
		return nil, err
	}
	a.onClose(l.Close)
	return l, nil
}

func (a *app) snapshotStore(rc *redis.Client) store.Store[conversation.Snapshot] {
	return store.Redis[conversation.Snapshot](rc, snapshotKeyPrefix, a.cfg.Redis.TTL)
}

func (a *app) sessions(conversations executor.Conversations) (*session.Manager, error) {
	options := []session.Option{
		session.WithPollInterval(a.cfg.Session.PollInterval),
		session.WithTurnTimeout(a.cfg.Session.TurnTimeout),
	}
	if rc := a.redisClient(); rc != nil {
		options = append(options, session.WithStore(store.Redis[session.Session](rc, sessionKeyPrefix, a.cfg.Redis.TTL)))
	}
	return session.NewManager(conversations, options...)
}

func (a *app) chat(ctx context.Context) error {
	conversations, err := a.conversations()
	if err != nil {
		return err
	}
	mgr, err := a.sessions(conversations)
	if err != nil {
		return err
	}

	// live tool activity is only visible when events reach this process
	var b broker.Broker
	if a.cfg.Executor == config.ExecutorLocal || a.cfg.NATS.URL != "" {
		if b, err = a.eventBroker(); err != nil {
			return err
		}
	}
	sh, err := shell.New(mgr, b, os.Stdout)
	if err != nil {
		return err
	}
	return sh.Run(ctx)
}

func (a *app) serve(ctx context.Context) error {
	conversations, err := a.conversations()
	if err != nil {
		return err
	}
	mgr, err := a.sessions(conversations)
	if err != nil {
		return err
	}

	e := httpapi.New(mgr)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", a.cfg.HTTP.Address))
		errCh <- e.Start(a.cfg.HTTP.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func (a *app) worker(ctx context.Context) error {
	c, err := a.temporalClient()
	if err != nil {
		return err
	}
	r, err := a.reasoner()
	if err != nil {
		return err
	}
	tb, err := a.toolbox()
	if err != nil {
		return err
	}
	var b broker.Broker
	if a.cfg.NATS.URL != "" {
		if b, err = a.eventBroker(); err != nil {
			return err
		}
	}
	acts, err := executor.NewActivities(r, tb, b)
	if err != nil {
		return err
	}

	w := worker.New(c, a.cfg.Temporal.TaskQueue, worker.Options{})
	executor.Register(w, acts)

	stop := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	slog.Info("temporal worker started", slog.String("task_queue", a.cfg.Temporal.TaskQueue))
	return w.Run(stop)
}

func (a *app) history(ctx context.Context, rawID string) error {
	id, err := uuidx.Parse(rawID)
	if err != nil {
		return err
	}
	conversations, err := a.conversations()
	if err != nil {
		return err
	}
	turns, err := conversations.History(ctx, id)
	if err != nil {
		return err
	}
	_, err = pp.Println(turns)
	return err
}
