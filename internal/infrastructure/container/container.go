package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"obavg/internal/application/port"
	"obavg/internal/application/usecase/orderbook"
	"obavg/internal/infrastructure/config"
	"obavg/internal/infrastructure/storage/composite"
	postgresrepo "obavg/internal/infrastructure/storage/postgres"
	redisrepo "obavg/internal/infrastructure/storage/redis"
	sqliterepo "obavg/internal/infrastructure/storage/sqlite"
)

// Container 持有存储层依赖（结果日志）
type Container struct {
	cfg          *config.Config
	redisRepo    *redisrepo.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *postgresrepo.Repo
	closeOnce    sync.Once
	closerChain  []func() error
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

	return c, nil
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}
	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rcfg := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisRepo = redisrepo.New(rdb, rcfg.Prefix, time.Duration(rcfg.TTLSeconds)*time.Second, rcfg.Stream, rcfg.Channel)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().Str("addr", rcfg.Addr).Int("db", rcfg.DB).Msg("redis initialized")
	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	c.sqliteRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().Str("path", c.cfg.Storage.SQLite.Path).Msg("sqlite initialized")
	return nil
}

// initPostgres 初始化 Postgres
func (c *Container) initPostgres() error {
	repo, err := postgresrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.postgresRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

// ResultRepository 返回所有已启用后端的组合；都未启用时返回 noop
func (c *Container) ResultRepository() port.ResultRepository {
	var repos []port.ResultRepository
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		repos = append(repos, c.postgresRepo)
	}
	if len(repos) == 0 {
		return orderbook.NewNoopRepo()
	}
	return composite.New(repos...)
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
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
