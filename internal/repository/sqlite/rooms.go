package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/WatchParty/internal/domain"
)

// RoomView is a room with display names resolved, for listings and details.
type RoomView struct {
	domain.Room
	OwnerName string         `json:"createdByName"`
	HostName  string         `json:"hostName"`
	Members   []domain.Actor `json:"members"`
}

// CreateRoom persists the room, seeds the owner as first member and updates
// the owner's created/current pointers, all in one transaction.
func (r *Repository) CreateRoom(ctx context.Context, room *domain.Room) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create room: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, owner_id, host_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.OwnerID, room.HostID, room.CreatedAt); err != nil {
		return fmt.Errorf("insert room %s: %w", room.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`, room.ID, room.OwnerID); err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET created_room_id = ?, current_room_id = ? WHERE id = ?`,
		room.ID, room.ID, room.OwnerID); err != nil {
		return fmt.Errorf("update owner pointers: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var room domain.Room
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, host_id, created_at FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &room.OwnerID, &room.HostID, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room %s: %w", id, err)
	}
	return &room, nil
}

func (r *Repository) GetRoomView(ctx context.Context, id domain.RoomID) (*RoomView, error) {
	var v RoomView
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.name, r.owner_id, r.host_id, r.created_at,
			COALESCE(o.username, ''), COALESCE(h.username, '')
		 FROM rooms r
		 LEFT JOIN users o ON o.id = r.owner_id
		 LEFT JOIN users h ON h.id = r.host_id
		 WHERE r.id = ?`, id).
		Scan(&v.ID, &v.Name, &v.OwnerID, &v.HostID, &v.CreatedAt, &v.OwnerName, &v.HostName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room view %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.username FROM room_members m JOIN users u ON u.id = m.user_id WHERE m.room_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query room members %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.ID, &a.Username); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		v.Members = append(v.Members, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room members: %w", err)
	}
	return &v, nil
}

func (r *Repository) ListRoomViews(ctx context.Context) ([]RoomView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.owner_id, r.host_id, r.created_at,
			COALESCE(o.username, ''), COALESCE(h.username, '')
		 FROM rooms r
		 LEFT JOIN users o ON o.id = r.owner_id
		 LEFT JOIN users h ON h.id = r.host_id
		 ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := make([]RoomView, 0)
	for rows.Next() {
		var v RoomView
		if err := rows.Scan(&v.ID, &v.Name, &v.OwnerID, &v.HostID, &v.CreatedAt, &v.OwnerName, &v.HostName); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}

// AddMember marks userID as a member of the room and points their current
// room at it. Re-joining an already joined room is a no-op.
func (r *Repository) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add member: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)`, roomID, userID); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET current_room_id = ? WHERE id = ?`, roomID, userID); err != nil {
		return fmt.Errorf("update current room: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id = ? AND user_id = ?`, roomID, userID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (r *Repository) UpdateHost(ctx context.Context, roomID domain.RoomID, hostID domain.UserID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET host_id = ? WHERE id = ?`, hostID, roomID); err != nil {
		return fmt.Errorf("update host for %s: %w", roomID, err)
	}
	return nil
}

func (r *Repository) ListRoomsCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner_id, host_id, created_at FROM rooms WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list old rooms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.OwnerID, &room.HostID, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan old room: %w", err)
		}
		out = append(out, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate old rooms: %w", err)
	}
	return out, nil
}

// DeleteRoomCascade removes the room row and every pointer at it: member
// rows, members' current-room pointers, the owner's created-room pointer.
// The caller evicts the live session afterwards.
func (r *Repository) DeleteRoomCascade(ctx context.Context, id domain.RoomID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete room: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET current_room_id = '' WHERE current_room_id = ?`, id); err != nil {
		return fmt.Errorf("clear current pointers: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET created_room_id = '' WHERE created_room_id = ?`, id); err != nil {
		return fmt.Errorf("clear created pointer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return tx.Commit()
}
