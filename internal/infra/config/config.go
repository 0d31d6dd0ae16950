package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Auth struct {
		// Пустой секрет выключает разбор токенов: все вызовы анонимные.
		JWTSecret string `envconfig:"JWT_SECRET"`
	} `envconfig:""`

	Recs struct {
		MaxItems      int           `envconfig:"RECS_MAX_ITEMS" default:"10"`
		CandidatePool int           `envconfig:"RECS_CANDIDATE_POOL" default:"50"`
		SearchLimit   int           `envconfig:"RECS_SEARCH_LIMIT" default:"20"`
		WatchLimit    int           `envconfig:"RECS_WATCH_LIMIT" default:"50"`
		LikesLimit    int           `envconfig:"RECS_LIKES_LIMIT" default:"20"`
		SimilarUsers  int           `envconfig:"RECS_SIMILAR_USERS" default:"10"`
		TrendingLimit int           `envconfig:"RECS_TRENDING_LIMIT" default:"10"`
		TrendingTTL   time.Duration `envconfig:"RECS_TRENDING_TTL" default:"60s"`
		AuditThrottle time.Duration `envconfig:"RECS_AUDIT_THROTTLE" default:"1m"`
	} `envconfig:""`

	// Константы скоринга вынесены в настройки: значения по умолчанию
	// подобраны под масштаб данных площадки, а не выведены аналитически.
	Scoring struct {
		KeywordWeight    float64 `envconfig:"SCORING_KEYWORD_WEIGHT" default:"0.4"`
		CategoryWeight   float64 `envconfig:"SCORING_CATEGORY_WEIGHT" default:"0.3"`
		EngagementWeight float64 `envconfig:"SCORING_ENGAGEMENT_WEIGHT" default:"0.2"`
		TrendingWeight   float64 `envconfig:"SCORING_TRENDING_WEIGHT" default:"0.1"`
		EngagementScale  float64 `envconfig:"SCORING_ENGAGEMENT_SCALE" default:"10"`
		TrendingCap      float64 `envconfig:"SCORING_TRENDING_CAP" default:"100000"`
		CollabBonus      float64 `envconfig:"SCORING_COLLAB_BONUS" default:"0.15"`
	} `envconfig:""`

	Search struct {
		ResultsLimit int `envconfig:"SEARCH_RESULTS_LIMIT" default:"20"`
	} `envconfig:""`

	Queues struct {
		Audit   string `envconfig:"AUDIT_QUEUE_KEY" default:"recs_audit"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
