package ranker

import (
	"sort"
	"strings"

	"video-recs/internal/domain"
)

// Config задаёт веса и константы скоринга. Значения по умолчанию подобраны
// под масштаб данных площадки, а не выведены аналитически, поэтому вынесены
// в настройки.
type Config struct {
	KeywordWeight    float64
	CategoryWeight   float64
	EngagementWeight float64
	TrendingWeight   float64
	EngagementScale  float64
	TrendingCap      float64
	CollabBonus      float64
}

// DefaultConfig возвращает исходные веса скоринга.
func DefaultConfig() Config {
	return Config{
		KeywordWeight:    0.4,
		CategoryWeight:   0.3,
		EngagementWeight: 0.2,
		TrendingWeight:   0.1,
		EngagementScale:  10,
		TrendingCap:      100000,
		CollabBonus:      0.15,
	}
}

// Weighted применяет эвристический скоринг по четырём взвешенным сигналам
// с коллаборативным бонусом сверху.
type Weighted struct {
	cfg Config
}

var _ domain.Ranker = (*Weighted)(nil)

// NewWeighted создаёт ранжировщик.
func NewWeighted(cfg Config) *Weighted {
	return &Weighted{cfg: cfg}
}

// Rank оценивает кандидатов, сортирует по убыванию оценки (при равенстве
// сохраняется порядок выборки) и обрезает до limit.
func (r *Weighted) Rank(signals domain.UserSignals, candidates []domain.Candidate, limit int) []domain.ScoredVideo {
	if len(candidates) == 0 {
		return nil
	}
	items := make([]domain.ScoredVideo, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, domain.ScoredVideo{Video: c.Video, Score: r.score(signals, c)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// score считает взвешенную сумму. Каждое слагаемое нормировано в [0,1]
// до умножения на вес; бонус добавляется поверх, поэтому итог может
// превышать 1.0 и вызывающие не должны полагаться на эту границу.
func (r *Weighted) score(signals domain.UserSignals, c domain.Candidate) float64 {
	v := c.Video
	score := 0.0

	if len(signals.Keywords) > 0 {
		title := strings.ToLower(v.Title)
		desc := strings.ToLower(v.Description)
		matches := 0
		for _, kw := range signals.Keywords {
			if strings.Contains(title, kw) || strings.Contains(desc, kw) {
				matches++
			}
		}
		score += float64(matches) / float64(len(signals.Keywords)) * r.cfg.KeywordWeight
	}

	if v.Category != "" {
		for _, cat := range signals.WatchedCategories {
			if cat == v.Category {
				score += r.cfg.CategoryWeight
				break
			}
		}
	}

	if v.Views > 0 {
		rate := float64(v.Likes+v.Comments) / float64(v.Views)
		score += minFloat(rate*r.cfg.EngagementScale, 1) * r.cfg.EngagementWeight
	}

	if r.cfg.TrendingCap > 0 {
		score += minFloat(float64(v.Views)/r.cfg.TrendingCap, 1) * r.cfg.TrendingWeight
	}

	if c.LikedBySimilar {
		score += r.cfg.CollabBonus
	}
	return score
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
