// FILE: internal/service/metadata_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"dota-report-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

var ErrInvalidHero = errors.New("invalid hero name selected")

// MetadataSource is the part of the OpenDota client used for option lists and
// name lookups.
type MetadataSource interface {
	HeroStats(ctx context.Context) ([]entity.HeroStat, error)
	Player(ctx context.Context, accountId int64) (*entity.PlayerProfile, error)
}

type IMetadataService interface {
	HeroNames(ctx context.Context) ([]string, error)
	HeroID(ctx context.Context, name string) (int, error)
	HeroName(ctx context.Context, heroId int) string
	PlayerName(ctx context.Context, accountId int64) (string, error)
}

type metadataService struct {
	source MetadataSource
	cache  *cache.Cache
}

const heroesCacheKey = "heroes"

func NewMetadataService(source MetadataSource) IMetadataService {
	return &metadataService{
		source: source,
		cache:  cache.New(time.Hour, 10*time.Minute),
	}
}

func (s *metadataService) heroes(ctx context.Context) (map[int]string, error) {
	if cached, ok := s.cache.Get(heroesCacheKey); ok {
		return cached.(map[int]string), nil
	}

	stats, err := s.source.HeroStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero stats: %w", err)
	}
	heroes := make(map[int]string, len(stats))
	for _, h := range stats {
		heroes[h.Id] = h.LocalizedName
	}
	s.cache.Set(heroesCacheKey, heroes, cache.DefaultExpiration)
	return heroes, nil
}

// HeroNames returns localized hero names in alphabetical order, the option
// list of the hero dropdown.
func (s *metadataService) HeroNames(ctx context.Context) ([]string, error) {
	heroes, err := s.heroes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(heroes))
	for _, name := range heroes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *metadataService) HeroID(ctx context.Context, name string) (int, error) {
	heroes, err := s.heroes(ctx)
	if err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	for id, heroName := range heroes {
		if strings.EqualFold(heroName, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHero, name)
}

// HeroName falls back to the numeric id when the hero list is unavailable or
// does not know the hero yet.
func (s *metadataService) HeroName(ctx context.Context, heroId int) string {
	heroes, err := s.heroes(ctx)
	if err == nil {
		if name, ok := heroes[heroId]; ok {
			return name
		}
	}
	return strconv.Itoa(heroId)
}

func (s *metadataService) PlayerName(ctx context.Context, accountId int64) (string, error) {
	key := "player:" + strconv.FormatInt(accountId, 10)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	profile, err := s.source.Player(ctx, accountId)
	if err != nil {
		return "", err
	}
	name := profile.Profile.PersonaName
	s.cache.Set(key, name, cache.DefaultExpiration)
	return name, nil
}
