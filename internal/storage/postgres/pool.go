package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultAcquireTimeout  = 2 * time.Second
	defaultMaxConns        = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// PoolConfig описывает параметры подключения к PostgreSQL.
// Фиксируется при старте процесса.
type PoolConfig struct {
	// DSN, если задан, имеет приоритет над отдельными полями.
	DSN            string
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	AcquireTimeout time.Duration
}

// DefaultPoolConfig возвращает настройки локальной БД сервиса.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Host:           "localhost",
		Port:           5432,
		Database:       "service_db",
		User:           "service_user",
		Password:       "service_password",
		SSLMode:        "disable",
		MaxConns:       defaultMaxConns,
		AcquireTimeout: defaultAcquireTimeout,
	}
}

// Validate проверяет обязательные параметры подключения.
func (c PoolConfig) Validate() error {
	if c.MaxConns <= 0 {
		return fmt.Errorf("max pool size must be positive, got %d", c.MaxConns)
	}
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return errors.New("postgres host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("postgres port is out of range: %d", c.Port)
	}
	if c.Database == "" {
		return errors.New("postgres database is required")
	}
	if c.User == "" {
		return errors.New("postgres user is required")
	}
	return nil
}

// ConnString собирает строку подключения в URL-формате.
func (c PoolConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted возвращает строку подключения без пароля (для логов).
func (c PoolConfig) Redacted() string {
	u, err := url.Parse(c.ConnString())
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}

// PoolStats — снимок состояния пула.
type PoolStats struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// Pool — ограниченный пул соединений с PostgreSQL.
// Каждая операция получает соединение в монопольное пользование через Acquire
// и обязана вернуть его через Release.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPool создаёт пул без установки соединений. Соединения открываются при первом Acquire.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = defaultConnMaxLifetime
	poolCfg.MaxConnIdleTime = defaultConnMaxIdleTime
	if poolCfg.ConnConfig.ConnectTimeout == 0 {
		poolCfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}

	return &Pool{pool: pool, acquireTimeout: acquireTimeout}, nil
}

// OpenPool создаёт пул и проверяет доступность базы.
func OpenPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	p, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Acquire выдаёт соединение. Если все соединения заняты, ждёт не дольше
// acquire timeout и возвращает ErrPoolExhausted. Недоступность базы — ErrConnection.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if p == nil || p.pool == nil {
		return nil, fmt.Errorf("%w: postgres pool is not initialized", domain.ErrConnection)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err == nil {
		return conn, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: acquire canceled: %w", domain.ErrConnection, ctx.Err())
	}

	stat := p.pool.Stat()
	if errors.Is(err, context.DeadlineExceeded) && stat.AcquiredConns() >= stat.MaxConns() {
		return nil, fmt.Errorf("%w after %s (%d/%d in use)",
			domain.ErrPoolExhausted, p.acquireTimeout, stat.AcquiredConns(), stat.MaxConns())
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
}

// Release возвращает соединение в пул. Безопасен для nil.
func (p *Pool) Release(conn *pgxpool.Conn) {
	if conn == nil {
		return
	}
	conn.Release()
}

// withConn выполняет fn на выделенном соединении и освобождает его на любом пути выхода.
func (p *Pool) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	return fn(conn)
}

// Ping проверяет доступность базы через соединение из пула.
func (p *Pool) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	return p.withConn(pingCtx, func(conn *pgxpool.Conn) error {
		if err := conn.Ping(pingCtx); err != nil {
			return fmt.Errorf("%w: ping postgres: %w", domain.ErrConnection, err)
		}
		return nil
	})
}

// Stats возвращает текущее состояние пула.
func (p *Pool) Stats() PoolStats {
	if p == nil || p.pool == nil {
		return PoolStats{}
	}
	stat := p.pool.Stat()
	return PoolStats{
		Acquired: stat.AcquiredConns(),
		Idle:     stat.IdleConns(),
		Total:    stat.TotalConns(),
		Max:      stat.MaxConns(),
	}
}

// Close закрывает все соединения пула. Безопасен для nil.
func (p *Pool) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}
