package database

import (
	"context"
	"slices"
	"sync"

	"rollcall/internal/models"
)

// MemoryStore keeps everything in process memory. It is meant for tests and
// throwaway local runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	configs map[string]models.GuildConfig
	rosters map[string]map[models.RosterSet][]models.Player
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]models.GuildConfig),
		rosters: make(map[string]map[models.RosterSet][]models.Player),
	}
}

func (m *MemoryStore) GuildConfig(ctx context.Context, guildID string) (models.GuildConfig, error) {
	if err := ctx.Err(); err != nil {
		return models.GuildConfig{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		return models.GuildConfig{}, notFound(guildID)
	}
	return copyConfig(cfg), nil
}

func (m *MemoryStore) SaveGuildConfig(ctx context.Context, cfg models.GuildConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.GuildID] = copyConfig(cfg)
	return nil
}

func (m *MemoryStore) DeleteGuildConfig(ctx context.Context, guildID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[guildID]; !ok {
		return notFound(guildID)
	}
	delete(m.configs, guildID)
	return nil
}

func (m *MemoryStore) ConfigsWhere(ctx context.Context, field models.ConfigField, value models.Weekday) ([]models.GuildConfig, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GuildConfig
	for _, cfg := range m.configs {
		if cfg.Weekday(field) == value {
			out = append(out, copyConfig(cfg))
		}
	}
	slices.SortFunc(out, func(a, b models.GuildConfig) int {
		switch {
		case a.GuildID < b.GuildID:
			return -1
		case a.GuildID > b.GuildID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MemoryStore) Members(ctx context.Context, guildID string, set models.RosterSet) ([]models.Player, error) {
	if err := checkSet(set); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rosters[guildID][set]), nil
}

func (m *MemoryStore) AddMember(ctx context.Context, guildID string, set models.RosterSet, player models.Player) error {
	if err := checkSet(set); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sets, ok := m.rosters[guildID]
	if !ok {
		sets = make(map[models.RosterSet][]models.Player)
		m.rosters[guildID] = sets
	}
	if slices.ContainsFunc(sets[set], func(p models.Player) bool { return p.ID == player.ID }) {
		return nil
	}
	sets[set] = append(sets[set], player)
	return nil
}

func (m *MemoryStore) RemoveMember(ctx context.Context, guildID string, set models.RosterSet, playerID string) error {
	if err := checkSet(set); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sets, ok := m.rosters[guildID]; ok {
		sets[set] = slices.DeleteFunc(sets[set], func(p models.Player) bool { return p.ID == playerID })
	}
	return nil
}

func (m *MemoryStore) MoveMember(ctx context.Context, guildID string, from, to models.RosterSet, player models.Player) error {
	if err := checkSet(from); err != nil {
		return err
	}
	if err := checkSet(to); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sets, ok := m.rosters[guildID]
	if !ok {
		sets = make(map[models.RosterSet][]models.Player)
		m.rosters[guildID] = sets
	}
	sets[from] = slices.DeleteFunc(sets[from], func(p models.Player) bool { return p.ID == player.ID })
	if !slices.ContainsFunc(sets[to], func(p models.Player) bool { return p.ID == player.ID }) {
		sets[to] = append(sets[to], player)
	}
	return nil
}

func (m *MemoryStore) ClearRosters(ctx context.Context, guildID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sets, ok := m.rosters[guildID]; ok {
		for _, set := range models.RSVPSets {
			delete(sets, set)
		}
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

func copyConfig(cfg models.GuildConfig) models.GuildConfig {
	if cfg.Organizer != nil {
		organizer := *cfg.Organizer
		cfg.Organizer = &organizer
	}
	return cfg
}
