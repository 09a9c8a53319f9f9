package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	appcontainer "tradepilot/internal/application/container"
	"tradepilot/internal/application/port"
	"tradepilot/internal/infrastructure/config"
	"tradepilot/internal/infrastructure/execution"
	"tradepilot/internal/infrastructure/feed"
	"tradepilot/internal/infrastructure/storage/composite"
	pgrepo "tradepilot/internal/infrastructure/storage/postgres"
	redisrepo "tradepilot/internal/infrastructure/storage/redis"
	sqliterepo "tradepilot/internal/infrastructure/storage/sqlite"
	"tradepilot/internal/infrastructure/storage/statefile"
	"tradepilot/internal/interfaces/telemetry"
)

// Container 包含所有应用依赖
type Container struct {
	cfg         *config.Config
	redisClient *redis.Client
	sqliteRepo  *sqliterepo.Repo
	redisRepo   *redisrepo.Repo
	pgRepo      *pgrepo.Repo
	repo        *composite.Repo
	publisher   *composite.Publisher
	feed        port.PriceFeed
	executor    port.OrderExecutor
	state       *statefile.Store
	hub         *telemetry.Hub
	app         *appcontainer.Container
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	// 初始化存储层
	if cfg.Storage.Enabled {
		if err := c.initStorage(); err != nil {
			// 清理已初始化的资源
			_ = c.Close()
			return nil, err
		}
	}
	c.repo = composite.New(c.repos()...)

	if err := c.initFeed(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("feed init failed: %w", err)
	}
	if err := c.initExecutor(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("execution init failed: %w", err)
	}
	c.state = statefile.New(cfg.App.StatePath)

	if cfg.Telemetry.Enabled {
		c.hub = telemetry.NewHub()
	}
	var pubs []port.Publisher
	if c.hub != nil {
		pubs = append(pubs, c.hub)
	}
	if c.redisRepo != nil {
		pubs = append(pubs, c.redisRepo)
	}
	c.publisher = composite.NewPublisher(pubs...)

	return c, nil
}

func (c *Container) repos() []port.Repository {
	var out []port.Repository
	if c.sqliteRepo != nil {
		out = append(out, c.sqliteRepo)
	}
	if c.pgRepo != nil {
		out = append(out, c.pgRepo)
	}
	if c.redisRepo != nil {
		out = append(out, c.redisRepo)
	}
	return out
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	// Redis
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	// SQLite
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	// Postgres
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	ttl := time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second

	c.redisRepo = redisrepo.New(
		rdb,
		c.cfg.Storage.Redis.Prefix,
		ttl,
		c.cfg.Storage.Redis.DecisionStream,
		c.cfg.Storage.Redis.DecisionChannel,
	)

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

// initPostgres 初始化 Postgres
func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.pgRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})
	log.Info().Msg("postgres initialized")
	return nil
}

// initFeed 行情源外面套一层重试
func (c *Container) initFeed() error {
	f := c.cfg.Feed
	inner, err := feed.New(f.Kind, feed.Options{
		Symbols:     c.cfg.Symbols.List,
		Seed:        f.Seed,
		Drift:       f.Drift,
		Volatility:  f.Volatility,
		StartPrices: f.StartPrices,
		ReplayPath:  f.ReplayPath,
	})
	if err != nil {
		return err
	}
	c.feed = feed.NewRetrying(inner, feed.RetryConfig{
		Retries: f.Retries,
		Base:    time.Duration(f.RetryBaseMs) * time.Millisecond,
		Timeout: time.Duration(f.TimeoutMs) * time.Millisecond,
	})
	log.Info().Str("kind", f.Kind).Int("retries", f.Retries).Msg("price feed initialized")
	return nil
}

func (c *Container) initExecutor() error {
	e := c.cfg.Execution
	ex, err := execution.New(e.Kind, execution.PaperConfig{
		FeeRate:     e.FeeRate,
		SpreadRate:  e.SpreadRate,
		SlippageBps: e.SlippageBps,
	}, e.RatePerSec, e.Burst)
	if err != nil {
		return err
	}
	c.executor = ex
	log.Info().Str("kind", e.Kind).Float64("rate_per_sec", e.RatePerSec).Msg("executor initialized")
	return nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// RedisRepo 获取 Redis 仓储
func (c *Container) RedisRepo() *redisrepo.Repo {
	return c.redisRepo
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

// Repository 所有已启用后端的组合，未启用任何后端时为空组合
func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) Publisher() port.Publisher {
	return c.publisher
}

func (c *Container) Feed() port.PriceFeed {
	return c.feed
}

func (c *Container) Executor() port.OrderExecutor {
	return c.executor
}

func (c *Container) StateStore() port.StateStore {
	return c.state
}

// Telemetry 未启用时为 nil
func (c *Container) Telemetry() *telemetry.Hub {
	return c.hub
}

// App 应用层容器，按配置翻译领域参数
func (c *Container) App() *appcontainer.Container {
	if c.app == nil {
		cfg := c.cfg
		c.app = appcontainer.New(c.repo, appcontainer.Options{
			Params:           cfg.Params,
			Capital:          cfg.App.Capital,
			QuoteAsset:       cfg.App.QuoteAsset,
			DryRun:           cfg.App.DryRun,
			MaxDailyTrades:   cfg.App.MaxDailyTrades,
			MaxPortfolioHeat: cfg.Risk.MaxPortfolioHeat,
			MaxPositionRisk:  cfg.Risk.MaxPositionRisk,
			TPBps:            cfg.Exits.TPBps,
			SLBps:            cfg.Exits.SLBps,
			TrailBps:         cfg.Exits.TrailBps,
			UseTrailing:      cfg.Exits.UseTrailing,
			MaxChunkFraction: cfg.Exits.MaxChunkFraction,
			SpreadRate:       cfg.Execution.SpreadRate,
			FeeRate:          cfg.Execution.FeeRate,
			Executor:         c.executor,
			Store:            c.state,
			Publisher:        c.publisher,
		})
	}
	return c.app
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
