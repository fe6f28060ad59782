package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/config"
	"github.com/oksasatya/feedstream/internal/realtime"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

// app-level container to share constructed components across packages.
// Everything here is built exactly once in cmd/main.go before the
// router modules are wired; the hub in particular is created at startup
// and passed by reference, never looked up lazily.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client
	tokens      *helpers.TokenManager
	hub         *realtime.Hub
	rabbitPub   *helpers.RabbitPublisher
	esClient    *elasticsearch.Client
)

func SetConfig(c *config.Config)            { cfg = c }
func GetConfig() *config.Config             { return cfg }
func SetLogger(l *logrus.Logger)            { logger = l }
func GetLogger() *logrus.Logger             { return logger }
func SetPGPool(p *pgxpool.Pool)             { pgPool = p }
func GetPGPool() *pgxpool.Pool              { return pgPool }
func SetRedis(r *redis.Client)              { redisClient = r }
func GetRedis() *redis.Client               { return redisClient }
func SetGCS(s *storage.Client)              { gcsClient = s }
func GetGCS() *storage.Client               { return gcsClient }
func SetTokens(m *helpers.TokenManager)     { tokens = m }
func GetTokens() *helpers.TokenManager      { return tokens }
func SetHub(h *realtime.Hub)                { hub = h }
func GetHub() *realtime.Hub                 { return hub }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)         { esClient = c }
func GetES() *elasticsearch.Client          { return esClient }
