package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/persistence"
)

// DefaultSlots is the number of save slots per player.
const DefaultSlots = 5

// EmptySlotPreview is the preview reported for an unused slot.
const EmptySlotPreview = "Empty slot"

// ErrSlotOutOfRange is returned for slot numbers outside [0, slots).
var ErrSlotOutOfRange = errors.New("save slot out of range")

// SlotInfo summarizes one save slot.
type SlotInfo struct {
	Slot        int    `json:"slot"`
	Key         string `json:"key"`
	Empty       bool   `json:"empty"`
	SaveTime    string `json:"saveTime,omitempty"`
	PreviewText string `json:"previewText"`
}

// SlotKey returns the store key of a player's slot.
func SlotKey(player string, slot int) string {
	key := "Save_" + strconv.Itoa(slot)
	if player == "" {
		return key
	}
	return player + "." + key
}

// SlotCount returns the number of slots per player.
func (m *Manager) SlotCount() int {
	return m.slots
}

func (m *Manager) checkSlot(slot int) error {
	if slot < 0 || slot >= m.slots {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrSlotOutOfRange, slot, m.slots)
	}
	return nil
}

// SaveSlot snapshots the player's session into slot.
func (m *Manager) SaveSlot(ctx context.Context, player string, slot int, now time.Time) (domain.SaveRecord, error) {
	var rec domain.SaveRecord
	if err := m.checkSlot(slot); err != nil {
		return rec, err
	}
	err := m.Do(ctx, player, func(s *runtime.Session) error {
		rec = persistence.Snapshot(s, now, m.labels)
		if err := m.store.Save(ctx, SlotKey(player, slot), &rec); err != nil {
			return fmt.Errorf("failed to save slot %d: %w", slot, err)
		}
		return nil
	})
	if err == nil {
		m.logger.Info("Saved slot", "player", player, "slot", slot, "node_id", rec.NodeID)
	}
	return rec, err
}

// LoadSlot restores slot into a new session for the player, superseding any
// live one.
func (m *Manager) LoadSlot(ctx context.Context, player string, slot int) (domain.Frame, error) {
	var frame domain.Frame
	if err := m.checkSlot(slot); err != nil {
		return frame, err
	}
	err := m.WithLock(ctx, player, func(ctx context.Context) error {
		rec, err := m.store.Load(ctx, SlotKey(player, slot))
		if err != nil {
			return err
		}
		s, err := persistence.Restore(rec, m.Graph(), m.sessionOptions(player)...)
		if err != nil {
			return err
		}
		m.put(player, s)
		m.logger.Info("Loaded slot", "player", player, "slot", slot, "node_id", rec.NodeID)
		frame = s.Frame()
		return nil
	})
	return frame, err
}

// DeleteSlot removes a save.
func (m *Manager) DeleteSlot(ctx context.Context, player string, slot int) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	return m.WithLock(ctx, player, func(ctx context.Context) error {
		return m.store.Delete(ctx, SlotKey(player, slot))
	})
}

// Slots lists every slot of the player, empty ones included.
func (m *Manager) Slots(ctx context.Context, player string) ([]SlotInfo, error) {
	if err := ValidatePlayer(player); err != nil {
		return nil, err
	}
	out := make([]SlotInfo, 0, m.slots)
	for i := 0; i < m.slots; i++ {
		info := SlotInfo{Slot: i, Key: SlotKey(player, i)}
		rec, err := m.store.Load(ctx, info.Key)
		switch {
		case errors.Is(err, domain.ErrSaveNotFound):
			info.Empty = true
			info.PreviewText = EmptySlotPreview
		case err != nil:
			return nil, fmt.Errorf("failed to read slot %d: %w", i, err)
		default:
			info.SaveTime = rec.SaveTime
			info.PreviewText = rec.PreviewText
		}
		out = append(out, info)
	}
	return out, nil
}
