package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"dota-report-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const now = int64(1_700_000_000)

type fakeSource struct {
	matches map[int64][]entity.PlayerMatch
	details map[int64]*entity.MatchDetail
	fetched []int64
}

func (f *fakeSource) PlayerMatches(_ context.Context, accountId int64) ([]entity.PlayerMatch, error) {
	return f.matches[accountId], nil
}

func (f *fakeSource) Match(_ context.Context, matchId int64) (*entity.MatchDetail, error) {
	f.fetched = append(f.fetched, matchId)
	d, ok := f.details[matchId]
	if !ok {
		return nil, errors.New("missing match")
	}
	return d, nil
}

func id(v int64) *int64 { return &v }

func newAnalyzer(src Source) *Analyzer {
	a := NewAnalyzer(src)
	a.now = func() time.Time { return time.Unix(now, 0) }
	return a
}

func player(account *int64, hero, slot, gpm int) entity.MatchPlayer {
	return entity.MatchPlayer{AccountId: account, HeroId: hero, PlayerSlot: slot, GoldPerMin: gpm}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowYear, w)

	w, err = ParseWindow("3months")
	require.NoError(t, err)
	seconds, ok := w.Seconds()
	assert.True(t, ok)
	assert.Equal(t, SecondsPer3Months, seconds)

	_, ok = WindowAll.Seconds()
	assert.False(t, ok)

	_, err = ParseWindow("decade")
	assert.Error(t, err)
}

func TestEnemyHeroGPM(t *testing.T) {
	src := &fakeSource{
		matches: map[int64][]entity.PlayerMatch{
			100: {
				{MatchId: 1, HeroId: 5, StartTime: now - 10, PlayerSlot: 0},
				{MatchId: 2, HeroId: 5, StartTime: now - 20, PlayerSlot: 128},
				{MatchId: 3, HeroId: 6, StartTime: now - 30, PlayerSlot: 0},             // other hero
				{MatchId: 4, HeroId: 5, StartTime: now - SecondsPerYear - 1, PlayerSlot: 0}, // outside window
			},
		},
		details: map[int64]*entity.MatchDetail{
			1: {MatchId: 1, Players: []entity.MatchPlayer{
				player(id(100), 5, 0, 400),
				player(nil, 10, 128, 600),
				player(nil, 11, 129, 300),
			}},
			2: {MatchId: 2, Players: []entity.MatchPlayer{
				player(nil, 12, 0, 700),
				player(id(100), 5, 128, 500),
				player(nil, 10, 129, 800),
			}},
		},
	}

	var progress []entity.Progress
	rows, err := newAnalyzer(src).EnemyHeroGPM(context.Background(), 100, 5, WindowYear, Hooks{
		Progress: func(current, total int) {
			progress = append(progress, entity.Progress{Current: current, Total: total})
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, src.fetched)
	assert.Equal(t, []entity.Progress{{Current: 0, Total: 2}, {Current: 1, Total: 2}, {Current: 2, Total: 2}}, progress)
	assert.Equal(t, []EnemyHeroGPM{
		{HeroId: 12, AverageGPM: 700, Samples: 1},
		{HeroId: 10, AverageGPM: 600, Samples: 1},
		{HeroId: 11, AverageGPM: 300, Samples: 1},
	}, rows)
}

func TestEnemyHeroGPMFallsBackToSummaryTeam(t *testing.T) {
	// The account plays anonymously, so its side comes from the summary slot.
	src := &fakeSource{
		matches: map[int64][]entity.PlayerMatch{
			100: {{MatchId: 1, HeroId: 5, StartTime: now, PlayerSlot: 130}},
		},
		details: map[int64]*entity.MatchDetail{
			1: {MatchId: 1, Players: []entity.MatchPlayer{
				player(nil, 5, 130, 450),
				player(nil, 20, 1, 350),
				player(nil, 20, 2, 450),
			}},
		},
	}

	rows, err := newAnalyzer(src).EnemyHeroGPM(context.Background(), 100, 5, WindowAll, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, []EnemyHeroGPM{{HeroId: 20, AverageGPM: 400, Samples: 2}}, rows)
}

func TestEnemyHeroGPMStopsAtCheckpoint(t *testing.T) {
	src := &fakeSource{
		matches: map[int64][]entity.PlayerMatch{
			100: {
				{MatchId: 1, HeroId: 5, StartTime: now},
				{MatchId: 2, HeroId: 5, StartTime: now},
			},
		},
		details: map[int64]*entity.MatchDetail{
			1: {MatchId: 1},
			2: {MatchId: 2},
		},
	}

	calls := 0
	_, err := newAnalyzer(src).EnemyHeroGPM(context.Background(), 100, 5, WindowAll, Hooks{
		Checkpoint: func(context.Context) error {
			calls++
			if calls > 2 {
				return ErrCancelled
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, []int64{1}, src.fetched)
}

func TestCancelledContextStopsBeforeWork(t *testing.T) {
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAnalyzer(src).PlayWith(ctx, 1, 2, WindowAll, Hooks{})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPlayWith(t *testing.T) {
	src := &fakeSource{
		matches: map[int64][]entity.PlayerMatch{
			100: {
				{MatchId: 1, HeroId: 5, StartTime: now - 100, PlayerSlot: 0, RadiantWin: true},
				{MatchId: 2, HeroId: 6, StartTime: now - 50, PlayerSlot: 0, RadiantWin: false},
				{MatchId: 3, HeroId: 7, StartTime: now - 10, PlayerSlot: 0, RadiantWin: true},
			},
			200: {
				{MatchId: 1, HeroId: 9, StartTime: now - 100, PlayerSlot: 1, RadiantWin: true},
				{MatchId: 2, HeroId: 8, StartTime: now - 50, PlayerSlot: 129, RadiantWin: false},
				{MatchId: 99, HeroId: 8, StartTime: now - 5, PlayerSlot: 0},
			},
		},
		details: map[int64]*entity.MatchDetail{
			1: {MatchId: 1, Players: []entity.MatchPlayer{player(id(100), 5, 0, 410), player(id(200), 9, 1, 520)}},
			2: {MatchId: 2, Players: []entity.MatchPlayer{player(id(100), 6, 0, 300), player(id(200), 8, 129, 610)}},
		},
	}

	rows, err := newAnalyzer(src).PlayWith(context.Background(), 100, 200, WindowAll, Hooks{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, SharedMatch{MatchId: 2, StartTime: now - 50, HeroId: 6, OtherHeroId: 8, Allied: false, Won: false, GPM: 300, OtherGPM: 610}, rows[0])
	assert.Equal(t, SharedMatch{MatchId: 1, StartTime: now - 100, HeroId: 5, OtherHeroId: 9, Allied: true, Won: true, GPM: 410, OtherGPM: 520}, rows[1])
}
