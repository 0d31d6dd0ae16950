package ranker

import (
	"fmt"
	"math"
	"testing"

	"video-recs/internal/domain"
)

func TestRankCookingScenario(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	signals := domain.UserSignals{
		Keywords:          []string{"cooking"},
		WatchedCategories: []string{"cooking"},
	}
	candidates := []domain.Candidate{{
		Video: domain.Video{
			ID:       "v1",
			Title:    "5 Minute Cooking Challenge",
			Category: "cooking",
			Views:    1000,
			Likes:    50,
			Comments: 10,
			IsPublic: true,
		},
	}}
	ranked := r.Rank(signals, candidates, 10)
	if len(ranked) != 1 {
		t.Fatalf("ожидали 1 элемент, получили %d", len(ranked))
	}
	// 0.4 + 0.3 + min(0.06*10,1)*0.2 + (1000/100000)*0.1 = 0.821
	if math.Abs(ranked[0].Score-0.821) > 1e-9 {
		t.Fatalf("ожидали оценку 0.821, получили %f", ranked[0].Score)
	}
}

func TestRankCollaborativeBonus(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	video := domain.Video{ID: "v1", Title: "Cooking", Category: "cooking", Views: 1000, Likes: 50, Comments: 10}
	signals := domain.UserSignals{Keywords: []string{"cooking"}, WatchedCategories: []string{"cooking"}}
	plain := r.Rank(signals, []domain.Candidate{{Video: video}}, 10)
	boosted := r.Rank(signals, []domain.Candidate{{Video: video, LikedBySimilar: true}}, 10)
	if math.Abs(boosted[0].Score-plain[0].Score-0.15) > 1e-9 {
		t.Fatalf("ожидали бонус 0.15, получили разницу %f", boosted[0].Score-plain[0].Score)
	}
}

func TestRankPopularityMonotoneBelowCap(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	var signals domain.UserSignals
	prev := -1.0
	for views := int64(0); views < 100000; views += 10000 {
		ranked := r.Rank(signals, []domain.Candidate{{Video: domain.Video{ID: "v", Views: views}}}, 1)
		if ranked[0].Score < prev {
			t.Fatalf("оценка убыла при росте просмотров: %f после %f", ranked[0].Score, prev)
		}
		prev = ranked[0].Score
	}
}

func TestRankOrdersAndTruncates(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	signals := domain.UserSignals{WatchedCategories: []string{"music"}}
	var candidates []domain.Candidate
	for i := 0; i < 15; i++ {
		cat := "other"
		if i%2 == 0 {
			cat = "music"
		}
		candidates = append(candidates, domain.Candidate{Video: domain.Video{ID: fmt.Sprintf("v%d", i), Category: cat}})
	}
	ranked := r.Rank(signals, candidates, 10)
	if len(ranked) != 10 {
		t.Fatalf("ожидали 10 элементов, получили %d", len(ranked))
	}
	if ranked[0].Video.Category != "music" {
		t.Fatalf("ожидали ролик из любимой категории первым")
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("нарушен порядок сортировки на позиции %d", i)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	var signals domain.UserSignals
	candidates := []domain.Candidate{
		{Video: domain.Video{ID: "first"}},
		{Video: domain.Video{ID: "second"}},
		{Video: domain.Video{ID: "third"}},
	}
	ranked := r.Rank(signals, candidates, 10)
	if ranked[0].Video.ID != "first" || ranked[1].Video.ID != "second" || ranked[2].Video.ID != "third" {
		t.Fatalf("при равных оценках порядок выборки должен сохраняться: %v", ranked)
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	r := NewWeighted(DefaultConfig())
	if got := r.Rank(domain.UserSignals{}, nil, 10); got != nil {
		t.Fatalf("ожидали nil для пустого пула, получили %v", got)
	}
}
