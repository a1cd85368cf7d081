// Package initialization wires configuration, stores, managers, and clients
// into a ready-to-use session container.
package initialization

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/internal/managers"
	"github.com/podplay/taskgraph/internal/storage"
	"github.com/podplay/taskgraph/pkg/clients/mcp"
	"github.com/podplay/taskgraph/pkg/domain"
	"github.com/podplay/taskgraph/pkg/recorder"
	"github.com/podplay/taskgraph/pkg/registry"
	"github.com/podplay/taskgraph/pkg/replayer"
)

// SessionContainer holds the wired dependencies of one assistant session.
type SessionContainer struct {
	config        *Config
	publisher     *managers.InProcessEventPublisher
	flowStore     domain.FlowStore
	templateStore domain.TemplateStore
	flowManager   *managers.FlowManager
	graphRegistry *registry.GraphRegistry
	recorder      *recorder.Recorder
	replayer      *replayer.Replayer
	mcpClient     *mcp.Client
}

// NewSessionContainer loads configuration and builds the dependency graph.
// The local file store is always present; a configured Mongo or Redis store
// is layered over it, remote copy winning on id collision. The MCP gateway
// client is optional: without it replay validation falls open and step
// execution fails with a capability-unavailable error.
func NewSessionContainer(ctx context.Context) (*SessionContainer, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	return NewSessionContainerWithConfig(ctx, config)
}

func NewSessionContainerWithConfig(ctx context.Context, config *Config) (*SessionContainer, error) {
	log.Info().Msg("Building session dependencies")

	localStore, err := storage.NewFileStore(storage.FileStoreDeps{
		BaseDir: config.DataDir,
	})
	if err != nil {
		return nil, err
	}

	flowStore, templateStore, err := layerRemoteStores(ctx, config, localStore)
	if err != nil {
		return nil, err
	}

	publisher := managers.NewInProcessEventPublisher()

	flowManager := managers.NewFlowManager(managers.FlowManagerDeps{
		Store:     flowStore,
		Publisher: publisher,
	})

	graphRegistry := registry.NewGraphRegistry(registry.GraphRegistryDeps{
		TemplateStore: templateStore,
	})

	if err := graphRegistry.LoadTemplates(ctx); err != nil {
		return nil, err
	}

	sessionRecorder := recorder.NewRecorder(recorder.RecorderDeps{
		Saver:     flowManager,
		Publisher: publisher,
	})

	var invoker domain.ToolInvoker
	var checker domain.ResourceChecker
	var mcpClient *mcp.Client

	if config.MCPBaseURL != "" {
		mcpClient = mcp.NewClient(mcp.WithBaseURL(config.MCPBaseURL))
		invoker = mcpClient
		checker = mcpClient
	} else {
		log.Warn().Msg("No MCP gateway configured, replay execution is unavailable")
	}

	flowReplayer := replayer.NewReplayer(replayer.ReplayerDeps{
		Flows:   flowManager,
		Invoker: invoker,
		Checker: checker,
	})

	return &SessionContainer{
		config:        config,
		publisher:     publisher,
		flowStore:     flowStore,
		templateStore: templateStore,
		flowManager:   flowManager,
		graphRegistry: graphRegistry,
		recorder:      sessionRecorder,
		replayer:      flowReplayer,
		mcpClient:     mcpClient,
	}, nil
}

func layerRemoteStores(ctx context.Context, config *Config, local *storage.FileStore) (domain.FlowStore, domain.TemplateStore, error) {
	switch {
	case config.MongoURI != "":
		remote, err := storage.NewMongoStore(storage.MongoStoreDeps{
			Context:      ctx,
			URI:          config.MongoURI,
			DatabaseName: config.MongoDatabase,
		})
		if err != nil {
			return nil, nil, err
		}

		log.Info().Msg("Layering MongoDB store over local file store")

		return storage.NewMergedFlowStore(local, remote), storage.NewMergedTemplateStore(local, remote), nil

	case config.RedisAddr != "":
		remote := storage.NewRedisStore(storage.RedisStoreDeps{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})

		log.Info().Msg("Layering Redis store over local file store")

		return storage.NewMergedFlowStore(local, remote), storage.NewMergedTemplateStore(local, remote), nil

	default:
		return local, local, nil
	}
}

func (c *SessionContainer) GetConfig() *Config {
	return c.config
}

func (c *SessionContainer) GetEventPublisher() *managers.InProcessEventPublisher {
	return c.publisher
}

func (c *SessionContainer) GetFlowManager() *managers.FlowManager {
	return c.flowManager
}

func (c *SessionContainer) GetGraphRegistry() *registry.GraphRegistry {
	return c.graphRegistry
}

func (c *SessionContainer) GetRecorder() *recorder.Recorder {
	return c.recorder
}

func (c *SessionContainer) GetReplayer() *replayer.Replayer {
	return c.replayer
}

func (c *SessionContainer) GetMCPClient() *mcp.Client {
	return c.mcpClient
}
