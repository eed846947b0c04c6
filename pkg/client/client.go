package client

import (
	"context"
	"time"

	"flightbook/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	redisPingTimeout  = 2 * time.Second
	disconnectTimeout = 10 * time.Second
)

// Client holds the shared connections of a service. Redis and RabbitMQ are
// optional and stay nil when not configured or unreachable.
type Client struct {
	Mongo    *mongo.Client
	Redis    *redis.Client
	RabbitMQ *amqp.Connection
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, falling back to in-process stores", "addr", addr, "error", err)
		_ = rdb.Close()
		return
	}

	log.Info("Successfully connected to Redis", "addr", addr)
	c.Redis = rdb
}

func (c *Client) SetRabbitMQ(log *logger.Logger, url string) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Warn("RabbitMQ unreachable, notifications will only be logged", "error", err)
		return
	}

	log.Info("Successfully connected to RabbitMQ")
	c.RabbitMQ = conn
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.RabbitMQ != nil {
		if err := c.RabbitMQ.Close(); err != nil {
			log.Error("Failed to close RabbitMQ connection", "error", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}

	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}
}
