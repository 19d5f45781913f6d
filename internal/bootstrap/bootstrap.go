package bootstrap

import (
	"context"

	"github.com/b25/tradecore/internal/container"
	"github.com/b25/tradecore/internal/datamanager"
	"github.com/b25/tradecore/internal/domain"
	"github.com/b25/tradecore/internal/events"
	"github.com/b25/tradecore/internal/monitoring"
	"github.com/b25/tradecore/internal/ordermanager"
	"github.com/b25/tradecore/internal/pipeline"
	"github.com/b25/tradecore/internal/registry"
	"github.com/b25/tradecore/internal/riskmanager"
	"github.com/b25/tradecore/plugins/sample/datasource"
	"github.com/b25/tradecore/plugins/sample/execution"
	monitorplugin "github.com/b25/tradecore/plugins/sample/monitoring"
	riskplugin "github.com/b25/tradecore/plugins/sample/risk"
	"github.com/b25/tradecore/plugins/sample/strategy"
	"go.uber.org/zap"
)

const defaultSource = "sample-datasource"

// App holds every manager, the registry, and the sample plugins wired
// together for a single process lifetime. It is the bootstrap.go
// counterpart to strategy-engine/cmd/server/main.go's construct-everything
// block, generalized across all five manager domains.
type App struct {
	Config Config
	Logger *zap.Logger

	Bus        *events.Bus
	Registry   *registry.Registry
	Lifecycle  *registry.LifecycleManager
	Container  *container.Container

	DataManager  *datamanager.Manager
	OrderManager *ordermanager.Manager
	RiskManager  *riskmanager.Manager
	Monitoring   *monitoring.Engine
	Pipeline     *pipeline.Engine

	dataPlugin     *datasource.Plugin
	executionPlugin *execution.Plugin
	riskPlugin     *riskplugin.Plugin
	strategyPlugin *strategy.Plugin
	monitorPlugin  *monitorplugin.Plugin

	healthCancel context.CancelFunc
}

var defaultSymbols = []domain.Symbol{
	domain.NewSymbol("BTCUSDT", "sample", domain.AssetCrypto),
	domain.NewSymbol("ETHUSDT", "sample", domain.AssetCrypto),
}

// New constructs every manager and sample plugin, registers the plugins
// with the registry, and validates the C4 container's dependency graph
// over the five sample plugins (execution and strategy depend on the data
// source for prices; risk and monitoring are leaves).
// Build() is run eagerly so a malformed dependency graph fails at startup
// rather than at first resolve.
func New(cfg Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Bus:      events.NewBus(logger, 4096),
		Registry: registry.New(),
	}
	app.Lifecycle = registry.NewLifecycleManager(app.Registry, logger)

	app.DataManager = datamanager.NewManager(cfg.DataManager, app.Bus)
	app.OrderManager = ordermanager.NewManager(cfg.OrderManager, app.Bus)
	app.RiskManager = riskmanager.NewManager(cfg.RiskManager, app.Bus)
	app.Monitoring = monitoring.NewEngine(cfg.Monitoring, app.Bus, monitoring.NewMetrics(cfg.Metrics.Namespace), logger)
	app.Pipeline = pipeline.NewEngine(cfg.Pipeline, app.Bus)

	portfolioValue, _ := cfg.PortfolioValue.Float64()

	app.dataPlugin = datasource.New(defaultSymbols)
	app.executionPlugin = execution.New(defaultSymbols, app.lastPrice)
	app.riskPlugin = riskplugin.New(riskmanager.PolicyRule{
		Name:  "max-notional-per-order",
		Scope: "account",
		Evaluate: func(order *domain.Order, portfolio *domain.Portfolio) (domain.RiskReport, bool) {
			if order.Price == nil || order.Quantity.IsZero() {
				return domain.RiskReport{}, false
			}
			notional := order.Price.Mul(order.Quantity)
			if notional.GreaterThan(cfg.RiskManager.MaxSingleOrderAmount) {
				return domain.RiskReport{
					Kind:     domain.ReportPositionRisk,
					Severity: domain.SeverityCritical,
					Message:  "sample policy: order notional exceeds configured ceiling",
					Score:    1.0,
					Source:   "sample-risk",
				}, true
			}
			return domain.RiskReport{}, false
		},
	})
	app.strategyPlugin = strategy.New(defaultSymbols, portfolioValue, app.lastPriceFloat)
	app.monitorPlugin = monitorplugin.New()

	if err := app.registerPlugins(); err != nil {
		return nil, err
	}
	if err := app.wireContainer(); err != nil {
		return nil, err
	}

	app.RiskManager.PolicyEngine().Register(riskmanager.PolicyRule{
		Name:  "empty-quantity-reject",
		Scope: "account",
		Evaluate: func(order *domain.Order, portfolio *domain.Portfolio) (domain.RiskReport, bool) {
			if order.Quantity.IsZero() {
				return domain.RiskReport{
					Kind:     domain.ReportOperational,
					Severity: domain.SeverityWarning,
					Message:  "order carries zero quantity",
					Score:    0.3,
					Source:   "empty-quantity-reject",
				}, true
			}
			return domain.RiskReport{}, false
		},
	})

	return app, nil
}

func (app *App) registerPlugins() error {
	if err := app.Registry.Register(app.dataPlugin); err != nil {
		return err
	}
	if err := app.Registry.Register(app.executionPlugin); err != nil {
		return err
	}
	if err := app.Registry.Register(app.riskPlugin); err != nil {
		return err
	}
	if err := app.Registry.Register(app.strategyPlugin); err != nil {
		return err
	}
	if err := app.Registry.Register(app.monitorPlugin); err != nil {
		return err
	}
	return nil
}

// wireContainer declares the five sample plugins as container services with
// their actual cross-dependencies (execution and strategy both depend on
// the data source for pricing) and validates the graph is acyclic. The
// container is not the thing that constructs these plugins in this
// process — they are already built above, the way every teacher service
// builds its own dependency tree by hand in main() — but Build() exercises
// the same cycle-detecting graph validation bootstrap.go would lean on if
// a future plugin's wiring grew complex enough to need it resolved rather
// than hand-assembled.
func (app *App) wireContainer() error {
	c := container.New()
	app.Container = c

	dataKey := container.Register[*datasource.Plugin](c, container.Singleton, "", nil, func(ctx context.Context, c *container.Container) (interface{}, error) {
		return app.dataPlugin, nil
	})
	container.Register[*execution.Plugin](c, container.Singleton, "", []container.Key{dataKey}, func(ctx context.Context, c *container.Container) (interface{}, error) {
		return app.executionPlugin, nil
	})
	container.Register[*riskplugin.Plugin](c, container.Singleton, "", nil, func(ctx context.Context, c *container.Container) (interface{}, error) {
		return app.riskPlugin, nil
	})
	container.Register[*strategy.Plugin](c, container.Singleton, "", []container.Key{dataKey}, func(ctx context.Context, c *container.Container) (interface{}, error) {
		return app.strategyPlugin, nil
	})
	container.Register[*monitorplugin.Plugin](c, container.Singleton, "", nil, func(ctx context.Context, c *container.Container) (interface{}, error) {
		return app.monitorPlugin, nil
	})

	return c.Build()
}

func (app *App) lastPrice(ctx context.Context, symbol domain.Symbol) (domain.Price, error) {
	tick, err := app.dataPlugin.GetLatestTick(ctx, symbol)
	if err != nil {
		return domain.Price{}, err
	}
	return tick.BidPrice.Add(tick.AskPrice).Div(domain.MustDecimal("2")), nil
}

func (app *App) lastPriceFloat(symbol domain.Symbol) (float64, error) {
	px, err := app.lastPrice(context.Background(), symbol)
	if err != nil {
		return 0, err
	}
	f, _ := px.Float64()
	return f, nil
}

// Start runs the lifecycle manager's StartAll over every registered plugin
// first, then registers, connects and subscribes the data source, registers
// and connects the execution gateway, registers the risk model and the
// monitor, registers and starts the strategy, and finally launches the
// hosting engines' loops and the health loop, mirroring
// strategy-engine/cmd/server/main.go's construct -> start -> serve
// sequencing.
func (app *App) Start(ctx context.Context) error {
	if _, err := app.Lifecycle.StartAll(ctx); err != nil {
		return err
	}

	if err := app.DataManager.RegisterSource(defaultSource, app.dataPlugin); err != nil {
		return err
	}
	if err := app.DataManager.Connect(ctx, defaultSource); err != nil {
		return err
	}
	for _, s := range defaultSymbols {
		if err := app.DataManager.Subscribe(ctx, s, defaultSource); err != nil {
			return err
		}
	}

	if err := app.OrderManager.RegisterGateway("sample-execution", app.executionPlugin); err != nil {
		return err
	}
	if err := app.OrderManager.Connect(ctx, "sample-execution"); err != nil {
		return err
	}

	if err := app.RiskManager.RegisterModel("sample-risk", app.riskPlugin); err != nil {
		return err
	}

	if err := app.Monitoring.RegisterMonitor("sample-monitoring", app.monitorPlugin); err != nil {
		return err
	}
	app.Monitoring.Start(ctx)

	if err := app.Pipeline.RegisterStrategy("sample-strategy", app.strategyPlugin, nil); err != nil {
		return err
	}
	if err := app.Pipeline.StartStrategy(ctx, "sample-strategy"); err != nil {
		return err
	}
	app.Pipeline.Start(ctx)

	healthCtx, cancel := context.WithCancel(ctx)
	app.healthCancel = cancel
	go app.Lifecycle.RunHealthLoop(healthCtx)

	return nil
}

// Stop reverses Start: the hosting engines' loops first, then every
// plugin via the lifecycle manager, matching the teacher's eng.Stop()
// preceding srv.Shutdown(ctx) in main().
func (app *App) Stop(ctx context.Context) {
	if app.healthCancel != nil {
		app.healthCancel()
	}
	app.Pipeline.Stop()
	app.Monitoring.Stop()
	app.Lifecycle.StopAll(ctx)
}
