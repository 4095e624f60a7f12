package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("无法创建数据库连接池: %w", err)
	}

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	return dbpool, nil
}

// ensureInitialAdmin 在数据库中还没有初始管理员时创建它
func ensureInitialAdmin(ctx context.Context, cfg *config.Config, repo *repository.Repository) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("无法生成初始管理员密码哈希: %w", err)
	}

	initialAdmin := &domain.User{
		Username:     cfg.InitialAdmin.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialAdmin.FullName,
		Email:        cfg.InitialAdmin.Email,
		Role:         domain.RoleAdmin,
	}
	if err := repo.CreateUser(ctx, initialAdmin); err != nil && !errors.Is(err, domain.ErrDuplicateUser) {
		return fmt.Errorf("无法创建初始管理员: %w", err)
	}

	return nil
}

// openMailChannel 连接 rabbitmq 并声明邮件队列，返回的连接需要由调用方关闭
func openMailChannel(cfg *config.Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("无法连接到 rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("无法建立通道: %w", err)
	}

	if _, err := ch.QueueDeclare("email_queue", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("无法声明队列: %w", err)
	}

	return conn, ch, nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
}
