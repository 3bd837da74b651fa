package collab

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// mappingConfig is an insertion-ordered key/value table parsed from a
// colon-delimited actor mapping file. Go has no ordered map in the
// standard library; a parallel key slice keeps iteration order without
// pulling in a container library no pack example exercises this way.
type mappingConfig struct {
	changed  bool
	keys     []string
	mappings map[string]string
}

func newMappingConfig() *mappingConfig {
	return &mappingConfig{mappings: make(map[string]string)}
}

func (c *mappingConfig) get(actor string) (string, bool) {
	v, ok := c.mappings[actor]
	return v, ok
}

// matchFuzzy returns the id of the first mapping whose id or caption
// equals actor.
func (c *mappingConfig) matchFuzzy(actor string) (string, bool) {
	for _, id := range c.keys {
		if id == actor || c.mappings[id] == actor {
			return id, true
		}
	}
	return "", false
}

func (c *mappingConfig) add(actor, mappedTo string) {
	key := strings.ToLower(actor)
	if _, exists := c.mappings[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.mappings[key] = strings.ToLower(mappedTo)
	c.changed = true
}

func (c *mappingConfig) update(actor, mappedTo string) {
	if v, ok := c.mappings[actor]; ok {
		if v != mappedTo {
			c.mappings[actor] = mappedTo
			c.changed = true
		}
		return
	}
	c.keys = append(c.keys, actor)
	c.mappings[actor] = mappedTo
	c.changed = true
}

func loadMappingConfig(r io.Reader) (*mappingConfig, error) {
	cfg := newMappingConfig()
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			continue
		}

		cols := strings.Split(line, ":")
		if len(cols) != 2 {
			return nil, fmt.Errorf("actor mappings line %d: expected 2 columns, found %d", lineNo, len(cols))
		}

		key := strings.ToLower(strings.TrimSpace(cols[0]))
		value := strings.ToLower(strings.TrimSpace(cols[1]))

		if _, exists := cfg.mappings[key]; exists {
			slog.Warn("found duplicate actor mapping", slog.String("actor", cols[0]))
		} else {
			cfg.keys = append(cfg.keys, key)
		}
		cfg.mappings[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *mappingConfig) store(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, key := range c.keys {
		if _, err := fmt.Fprintf(bw, "%s: %s\n", key, c.mappings[key]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ActorMapping resolves a raw actor id to a caption id, consulting a base
// mapping file and an override layer that records every resolution so it
// can be persisted and reused.
type ActorMapping struct {
	base     *mappingConfig
	override *mappingConfig
}

// NewActorMapping builds an ActorMapping from an already-loaded base
// table (may be empty) and an optional override table.
func NewActorMapping(base io.Reader, override io.Reader) (*ActorMapping, error) {
	baseCfg := newMappingConfig()
	if base != nil {
		cfg, err := loadMappingConfig(base)
		if err != nil {
			return nil, fmt.Errorf("actor mapping: loading base config: %w", err)
		}
		baseCfg = cfg
	}

	overrideCfg := newMappingConfig()
	if override != nil {
		cfg, err := loadMappingConfig(override)
		if err != nil {
			return nil, fmt.Errorf("actor mapping: loading override config: %w", err)
		}
		overrideCfg = cfg
	}

	return &ActorMapping{base: baseCfg, override: overrideCfg}, nil
}

// Changed reports whether the override layer has pending writes.
func (m *ActorMapping) Changed() bool { return m.override.changed }

// Resolve maps actor to a caption id. The override table always wins;
// otherwise a fuzzy match against the base table is attempted, falling
// back to actor itself. Every resolution is recorded in the override
// table so it can be inspected or persisted later.
func (m *ActorMapping) Resolve(actor string) string {
	actorLC := strings.ToLower(actor)

	if value, ok := m.override.get(actorLC); ok {
		return value
	}

	result := actor
	if value, ok := m.base.matchFuzzy(actorLC); ok {
		result = value
	}

	m.override.add(actor, result)
	return result
}

// Update overwrites (or adds) a single override mapping directly, e.g.
// from an operator's manual correction.
func (m *ActorMapping) Update(actor, mapping string) {
	m.override.update(actor, mapping)
}

// StoreUpdated writes the override table to w, only if it has changed
// since it was loaded.
func (m *ActorMapping) StoreUpdated(w io.Writer) error {
	if !m.override.changed {
		return nil
	}
	return m.override.store(w)
}
