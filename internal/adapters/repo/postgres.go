package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"video-recs/internal/domain"
	"video-recs/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.SearchRepo         = (*Postgres)(nil)
	_ domain.HistoryRepo        = (*Postgres)(nil)
	_ domain.LikeRepo           = (*Postgres)(nil)
	_ domain.VideoRepo          = (*Postgres)(nil)
	_ domain.RecommendationRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// SaveSearchQuery сохраняет поисковый запрос вместе с ключевыми словами.
func (p *Postgres) SaveSearchQuery(ctx context.Context, q domain.SearchQuery) (domain.SearchQuery, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var keywords []byte
	if len(q.Keywords) > 0 {
		data, err := json.Marshal(q.Keywords)
		if err != nil {
			return domain.SearchQuery{}, fmt.Errorf("marshal keywords: %w", err)
		}
		keywords = data
	}

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO search_queries (user_id, query, keywords)
VALUES ($1, $2, $3)
RETURNING id, created_at
`, q.UserID, q.Query, keywords).Scan(&q.ID, &q.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "search_queries_insert", "search_queries", start, err)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	return q, nil
}

// ListRecentSearches возвращает последние поисковые запросы пользователя.
func (p *Postgres) ListRecentSearches(ctx context.Context, userID string, limit int) ([]domain.SearchQuery, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, query, keywords, created_at
FROM search_queries WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	metrics.ObserveNetworkRequest("postgres", "search_queries_list_recent", "search_queries", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var queries []domain.SearchQuery
	for rows.Next() {
		var (
			q   domain.SearchQuery
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.UserID, &q.Query, &raw, &q.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			// Испорченный набор не фатален: сервис переизвлечёт слова из текста.
			_ = json.Unmarshal(raw, &q.Keywords)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// UpsertWatch создаёт или обновляет запись истории по паре user+video.
func (p *Postgres) UpsertWatch(ctx context.Context, entry domain.WatchEntry) (domain.WatchEntry, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO watch_history (user_id, video_id, watched_seconds, completed)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, video_id) DO UPDATE
    SET watched_seconds = EXCLUDED.watched_seconds,
        completed = EXCLUDED.completed,
        updated_at = now()
RETURNING id, updated_at
`, entry.UserID, entry.VideoID, entry.WatchedSeconds, entry.Completed).Scan(&entry.ID, &entry.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "watch_history_upsert", "watch_history", start, err)
	if err != nil {
		return domain.WatchEntry{}, err
	}
	return entry, nil
}

// ListRecentWatches возвращает последние записи истории вместе с категорией ролика.
func (p *Postgres) ListRecentWatches(ctx context.Context, userID string, limit int) ([]domain.WatchEntry, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT wh.id, wh.user_id, wh.video_id, wh.watched_seconds, wh.completed, wh.updated_at, v.category
FROM watch_history wh JOIN videos v ON v.id = wh.video_id
WHERE wh.user_id=$1
ORDER BY wh.updated_at DESC
LIMIT $2
`, userID, limit)
	metrics.ObserveNetworkRequest("postgres", "watch_history_list_recent", "watch_history", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []domain.WatchEntry
	for rows.Next() {
		var (
			e        domain.WatchEntry
			category sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.VideoID, &e.WatchedSeconds, &e.Completed, &e.UpdatedAt, &category); err != nil {
			return nil, err
		}
		e.Video.ID = e.VideoID
		if category.Valid {
			e.Video.Category = category.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddLike сохраняет лайк. Повторный лайк не считается ошибкой.
func (p *Postgres) AddLike(ctx context.Context, userID, videoID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO likes (user_id, video_id)
VALUES ($1, $2)
ON CONFLICT (user_id, video_id) DO NOTHING
`, userID, videoID)
	metrics.ObserveNetworkRequest("postgres", "likes_insert", "likes", start, err)
	return err
}

// RemoveLike удаляет лайк.
func (p *Postgres) RemoveLike(ctx context.Context, userID, videoID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM likes WHERE user_id=$1 AND video_id=$2`, userID, videoID)
	metrics.ObserveNetworkRequest("postgres", "likes_delete", "likes", start, err)
	return err
}

// ListRecentLikes возвращает последние лайки вместе с категорией ролика.
func (p *Postgres) ListRecentLikes(ctx context.Context, userID string, limit int) ([]domain.Like, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT l.id, l.user_id, l.video_id, l.created_at, v.category
FROM likes l JOIN videos v ON v.id = l.video_id
WHERE l.user_id=$1
ORDER BY l.created_at DESC
LIMIT $2
`, userID, limit)
	metrics.ObserveNetworkRequest("postgres", "likes_list_recent", "likes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var likes []domain.Like
	for rows.Next() {
		var (
			l        domain.Like
			category sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.VideoID, &l.CreatedAt, &category); err != nil {
			return nil, err
		}
		l.Video.ID = l.VideoID
		if category.Valid {
			l.Video.Category = category.String
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// ListLikedVideoIDs возвращает идентификаторы всех лайкнутых роликов.
func (p *Postgres) ListLikedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT video_id FROM likes WHERE user_id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "likes_list_video_ids", "likes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSimilarUsers возвращает пользователей, лайкнувших хотя бы один из
// переданных роликов, кроме самого userID.
func (p *Postgres) ListSimilarUsers(ctx context.Context, userID string, likedVideoIDs []string, limit int) ([]string, error) {
	if len(likedVideoIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT DISTINCT user_id FROM likes
WHERE video_id = ANY($2) AND user_id <> $1
LIMIT $3
`, userID, likedVideoIDs, limit)
	metrics.ObserveNetworkRequest("postgres", "likes_list_similar_users", "likes", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListCandidates интерпретирует спецификацию выборки кандидатов.
func (p *Postgres) ListCandidates(ctx context.Context, q domain.CandidateQuery) ([]domain.Candidate, error) {
	switch q.Kind {
	case domain.CandidatesTrending:
		return p.listTrending(ctx, q.Limit)
	case domain.CandidatesBySignals:
		return p.listBySignals(ctx, q)
	default:
		return nil, fmt.Errorf("unknown candidate query kind: %q", q.Kind)
	}
}

func (p *Postgres) listBySignals(ctx context.Context, q domain.CandidateQuery) ([]domain.Candidate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	exclude := q.ExcludeVideoIDs
	if exclude == nil {
		exclude = []string{}
	}
	categories := q.Categories
	if categories == nil {
		categories = []string{}
	}
	similar := q.SimilarUserIDs
	if similar == nil {
		similar = []string{}
	}

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT v.id, v.user_id, v.title, v.description, v.category, v.views, v.likes, v.comments, v.is_public, v.created_at,
       EXISTS (
           SELECT 1 FROM likes l
           WHERE l.video_id = v.id AND l.user_id = ANY($4::text[])
       ) AS liked_by_similar
FROM videos v
WHERE v.is_public
  AND NOT (v.id = ANY($1::text[]))
  AND (
      ($2 <> '' AND (v.title ILIKE '%' || $2 || '%' OR v.description ILIKE '%' || $2 || '%'))
      OR (cardinality($3::text[]) > 0 AND v.category = ANY($3::text[]))
      OR ($2 = '' AND cardinality($3::text[]) = 0)
  )
ORDER BY v.views DESC, v.created_at DESC
LIMIT $5
`, exclude, q.Keyword, categories, similar, q.Limit)
	metrics.ObserveNetworkRequest("postgres", "videos_list_candidates", "videos", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows, true)
}

func (p *Postgres) listTrending(ctx context.Context, limit int) ([]domain.Candidate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, title, description, category, views, likes, comments, is_public, created_at
FROM videos WHERE is_public
ORDER BY views DESC, created_at DESC
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "videos_list_trending", "videos", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows, false)
}

func scanCandidates(rows pgx.Rows, withSimilar bool) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	for rows.Next() {
		var (
			c           domain.Candidate
			description sql.NullString
			category    sql.NullString
		)
		dest := []any{
			&c.Video.ID, &c.Video.UserID, &c.Video.Title, &description, &category,
			&c.Video.Views, &c.Video.Likes, &c.Video.Comments, &c.Video.IsPublic, &c.Video.CreatedAt,
		}
		if withSimilar {
			dest = append(dest, &c.LikedBySimilar)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if description.Valid {
			c.Video.Description = description.String
		}
		if category.Valid {
			c.Video.Category = category.String
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// likeEscaper экранирует метасимволы LIKE: пользовательский ввод ищется
// буквально, а не как шаблон.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchVideos ищет публичные ролики по подстроке в названии или описании.
func (p *Postgres) SearchVideos(ctx context.Context, query string, limit int) ([]domain.Video, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, title, description, category, views, likes, comments, is_public, created_at
FROM videos
WHERE is_public AND (title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
ORDER BY views DESC, created_at DESC
LIMIT $2
`, likeEscaper.Replace(query), limit)
	metrics.ObserveNetworkRequest("postgres", "videos_search", "videos", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var videos []domain.Video
	for rows.Next() {
		var (
			v           domain.Video
			description sql.NullString
			category    sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.Title, &description, &category, &v.Views, &v.Likes, &v.Comments, &v.IsPublic, &v.CreatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			v.Description = description.String
		}
		if category.Valid {
			v.Category = category.String
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SaveRecommendation сохраняет след показанной рекомендации.
// Повторный показ той же пары user+video не считается ошибкой.
func (p *Postgres) SaveRecommendation(ctx context.Context, rec domain.RecommendationRecord) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO recommendations (user_id, video_id, score, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, video_id) DO NOTHING
`, rec.UserID, rec.VideoID, rec.Score, rec.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "recommendations_insert", "recommendations", start, err)
	return err
}
