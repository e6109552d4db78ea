// Package analysis computes the match reports served by the backend.
package analysis

import (
	"context"
	"errors"
	"sort"
	"time"

	"dota-report-be/internal/entity"
)

var ErrCancelled = errors.New("analysis: computation cancelled")

// Source is the slice of the OpenDota client the analyzer needs.
type Source interface {
	PlayerMatches(ctx context.Context, accountId int64) ([]entity.PlayerMatch, error)
	Match(ctx context.Context, matchId int64) (*entity.MatchDetail, error)
}

// Hooks let the caller observe and interrupt a computation. Both are optional.
// Checkpoint runs before every unit of work; a non-nil error aborts the run.
type Hooks struct {
	Progress   func(current, total int)
	Checkpoint func(ctx context.Context) error
}

func (h Hooks) progress(current, total int) {
	if h.Progress != nil {
		h.Progress(current, total)
	}
}

func (h Hooks) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}
	if h.Checkpoint != nil {
		return h.Checkpoint(ctx)
	}
	return nil
}

type Analyzer struct {
	source Source
	now    func() time.Time
}

func NewAnalyzer(source Source) *Analyzer {
	return &Analyzer{source: source, now: time.Now}
}

// EnemyHeroGPM is the average gold per minute of one enemy hero across the
// account's matches.
type EnemyHeroGPM struct {
	HeroId     int
	AverageGPM float64
	Samples    int
}

// SharedMatch is a match both accounts appeared in.
type SharedMatch struct {
	MatchId     int64
	StartTime   int64
	HeroId      int
	OtherHeroId int
	Allied      bool
	Won         bool
	GPM         int
	OtherGPM    int
}

func (a *Analyzer) matches(ctx context.Context, accountId int64, heroId int, window Window) ([]entity.PlayerMatch, error) {
	all, err := a.source.PlayerMatches(ctx, accountId)
	if err != nil {
		return nil, err
	}
	now := a.now().UTC().Unix()
	out := make([]entity.PlayerMatch, 0, len(all))
	for _, m := range all {
		if heroId != 0 && m.HeroId != heroId {
			continue
		}
		if !window.contains(now, m.StartTime) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// EnemyHeroGPM averages the GPM of every hero that played against accountId
// while it was playing heroId inside window. Rows are ordered by average GPM,
// highest first.
func (a *Analyzer) EnemyHeroGPM(ctx context.Context, accountId int64, heroId int, window Window, hooks Hooks) ([]EnemyHeroGPM, error) {
	if err := hooks.check(ctx); err != nil {
		return nil, err
	}
	matches, err := a.matches(ctx, accountId, heroId, window)
	if err != nil {
		return nil, err
	}

	total := len(matches)
	hooks.progress(0, total)

	gpms := make(map[int][]int)
	for i, summary := range matches {
		if err := hooks.check(ctx); err != nil {
			return nil, err
		}
		detail, err := a.source.Match(ctx, summary.MatchId)
		if err != nil {
			return nil, err
		}

		selfTeam := summary.Team()
		for _, p := range detail.Players {
			if p.Is(accountId) {
				selfTeam = p.Team()
				break
			}
		}
		for _, p := range detail.Players {
			if p.Team() != selfTeam {
				gpms[p.HeroId] = append(gpms[p.HeroId], p.GoldPerMin)
			}
		}
		hooks.progress(i+1, total)
	}

	rows := make([]EnemyHeroGPM, 0, len(gpms))
	for hero, values := range gpms {
		sum := 0
		for _, v := range values {
			sum += v
		}
		rows = append(rows, EnemyHeroGPM{
			HeroId:     hero,
			AverageGPM: float64(sum) / float64(len(values)),
			Samples:    len(values),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AverageGPM != rows[j].AverageGPM {
			return rows[i].AverageGPM > rows[j].AverageGPM
		}
		return rows[i].HeroId < rows[j].HeroId
	})
	return rows, nil
}

// PlayWith lists matches of accountId inside window that otherId also played,
// newest first.
func (a *Analyzer) PlayWith(ctx context.Context, accountId, otherId int64, window Window, hooks Hooks) ([]SharedMatch, error) {
	if err := hooks.check(ctx); err != nil {
		return nil, err
	}
	own, err := a.matches(ctx, accountId, 0, window)
	if err != nil {
		return nil, err
	}
	if err := hooks.check(ctx); err != nil {
		return nil, err
	}
	theirs, err := a.source.PlayerMatches(ctx, otherId)
	if err != nil {
		return nil, err
	}

	byId := make(map[int64]entity.PlayerMatch, len(own))
	for _, m := range own {
		byId[m.MatchId] = m
	}
	type pair struct{ mine, other entity.PlayerMatch }
	var shared []pair
	for _, m := range theirs {
		if mine, ok := byId[m.MatchId]; ok {
			shared = append(shared, pair{mine: mine, other: m})
		}
	}

	total := len(shared)
	hooks.progress(0, total)

	rows := make([]SharedMatch, 0, total)
	for i, p := range shared {
		if err := hooks.check(ctx); err != nil {
			return nil, err
		}
		detail, err := a.source.Match(ctx, p.mine.MatchId)
		if err != nil {
			return nil, err
		}
		row := SharedMatch{
			MatchId:     p.mine.MatchId,
			StartTime:   p.mine.StartTime,
			HeroId:      p.mine.HeroId,
			OtherHeroId: p.other.HeroId,
			Allied:      p.mine.Team() == p.other.Team(),
			Won:         p.mine.Won(),
		}
		for _, player := range detail.Players {
			switch {
			case player.Is(accountId):
				row.GPM = player.GoldPerMin
			case player.Is(otherId):
				row.OtherGPM = player.GoldPerMin
			}
		}
		rows = append(rows, row)
		hooks.progress(i+1, total)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime > rows[j].StartTime })
	return rows, nil
}
