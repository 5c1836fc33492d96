package cmd

import (
	"log/slog"

	"ordering/internal/adapters/in/http"
	"ordering/internal/core/application/domaineventhandlers"
	"ordering/internal/core/application/integrationeventhandlers"
	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/application/usecases/queries"
	"ordering/internal/core/ports"
	"ordering/internal/jobs"
	"ordering/internal/pkg/clock"
)

// CompositionRoot wires use cases to the adapters chosen at start-up.
type CompositionRoot struct {
	config     Config
	uowFactory ports.UnitOfWorkFactory
	bus        ports.MessageBus
	cache      ports.ProcessedEventCache
	clock      clock.Clock
	logger     *slog.Logger
}

// NewCompositionRoot accepts a nil cache.
func NewCompositionRoot(
	config Config,
	uowFactory ports.UnitOfWorkFactory,
	bus ports.MessageBus,
	cache ports.ProcessedEventCache,
	logger *slog.Logger,
) CompositionRoot {
	return CompositionRoot{
		config:     config,
		uowFactory: uowFactory,
		bus:        bus,
		cache:      cache,
		clock:      clock.NewRealClock(),
		logger:     logger,
	}
}

func (c *CompositionRoot) CreateChangeOrderStatusCommandHandler() (commands.ChangeOrderStatusCommandHandler, error) {
	topics := c.config.Topics()
	if err := topics.Validate(); err != nil {
		return nil, err
	}

	dispatcher := domaineventhandlers.NewOrderStatusDispatcher(topics, c.clock, c.logger)
	return commands.NewChangeOrderStatusCommandHandler(c.uowFactory, dispatcher, commands.ChangeOrderStatusConfig{
		Timeout:         c.config.CommandTimeout,
		ValidationDelay: c.config.ValidationDelay,
	}, c.logger)
}

func (c *CompositionRoot) CreateRelayOutboxCommandHandler(owner string) (commands.RelayOutboxCommandHandler, error) {
	return commands.NewRelayOutboxCommandHandler(c.uowFactory, c.bus, c.clock, c.config.RelayConfig(owner), c.logger)
}

func (c *CompositionRoot) CreateRequeueOutboxEntryCommandHandler() (commands.RequeueOutboxEntryCommandHandler, error) {
	return commands.NewRequeueOutboxEntryCommandHandler(c.uowFactory, c.clock, c.logger)
}

func (c *CompositionRoot) CreateCleanupRetentionCommandHandler() (commands.CleanupRetentionCommandHandler, error) {
	return commands.NewCleanupRetentionCommandHandler(c.uowFactory, c.clock, c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateListOutboxEntriesQueryHandler() queries.ListOutboxEntriesQueryHandler {
	return queries.NewListOutboxEntriesQueryHandler(c.uowFactory)
}

func (c *CompositionRoot) CreateIntegrationEventConsumer() (*integrationeventhandlers.Consumer, error) {
	handler, err := c.CreateChangeOrderStatusCommandHandler()
	if err != nil {
		return nil, err
	}
	return integrationeventhandlers.NewConsumer(c.uowFactory, handler, c.cache, c.clock,
		integrationeventhandlers.ConsumerConfig{Timeout: c.config.CommandTimeout}, c.logger)
}

func (c *CompositionRoot) CreateHTTPServer() (*http.Server, error) {
	changeStatus, err := c.CreateChangeOrderStatusCommandHandler()
	if err != nil {
		return nil, err
	}
	requeue, err := c.CreateRequeueOutboxEntryCommandHandler()
	if err != nil {
		return nil, err
	}

	return http.NewServer(
		changeStatus,
		requeue,
		c.CreateGetOrderQueryHandler(),
		c.CreateListOutboxEntriesQueryHandler(),
		c.logger,
	), nil
}

// CreateJobManager registers the relay and retention jobs.
func (c *CompositionRoot) CreateJobManager(owner string) (*jobs.JobManager, error) {
	relay, err := c.CreateRelayOutboxCommandHandler(owner)
	if err != nil {
		return nil, err
	}
	cleanup, err := c.CreateCleanupRetentionCommandHandler()
	if err != nil {
		return nil, err
	}
	cleanupJob, err := jobs.NewRetentionCleanupJob(cleanup, c.config.CleanupSchedule,
		c.config.OutboxRetention, c.config.ProcessedEventRetention, c.logger)
	if err != nil {
		return nil, err
	}

	return jobs.NewJobManager().
		Add("outbox relay job", jobs.NewOutboxRelayJob(relay, c.config.RelaySchedule, c.logger)).
		Add("retention cleanup job", cleanupJob), nil
}
