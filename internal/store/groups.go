package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vspok/wabottle/internal/event"
)

// GroupStore handles group metadata rows of one session. The participant
// roster is stored as a JSON column and mutated in memory.
type GroupStore struct {
	db     *DB
	authID int64
}

// NewGroupStore creates a GroupStore scoped to one session.
func NewGroupStore(db *DB, authID int64) *GroupStore {
	return &GroupStore{db: db, authID: authID}
}

// Save upserts the full group metadata by (id, auth_id).
func (s *GroupStore) Save(ctx context.Context, g *event.GroupMetadata) error {
	participants, err := json.Marshal(g.Participants)
	if err != nil {
		return fmt.Errorf("encode group participants: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO groups(auth_id, id, subject, subject_owner, subject_time, owner, creation,
			description, desc_owner, restrict_mode, announce, size, participants, ephemeral_duration, invite_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, auth_id) DO UPDATE SET
			subject=excluded.subject,
			subject_owner=COALESCE(excluded.subject_owner, groups.subject_owner),
			subject_time=COALESCE(excluded.subject_time, groups.subject_time),
			owner=COALESCE(excluded.owner, groups.owner),
			creation=COALESCE(excluded.creation, groups.creation),
			description=COALESCE(excluded.description, groups.description),
			desc_owner=COALESCE(excluded.desc_owner, groups.desc_owner),
			restrict_mode=excluded.restrict_mode,
			announce=excluded.announce,
			size=excluded.size,
			participants=excluded.participants,
			ephemeral_duration=COALESCE(excluded.ephemeral_duration, groups.ephemeral_duration),
			invite_code=COALESCE(excluded.invite_code, groups.invite_code)
	`, s.authID, g.ID, g.Subject, nullString(g.SubjectOwner), nullInt64(g.SubjectTime),
		nullString(g.Owner), nullInt64(g.Creation), nullString(g.Desc), nullString(g.DescOwner),
		boolToInt(g.Restrict), boolToInt(g.Announce), g.Size, string(participants),
		nullInt64(g.EphemeralDuration), nullString(g.InviteCode))
	return err
}

// Get returns group metadata by id, or nil when unseen.
func (s *GroupStore) Get(ctx context.Context, id string) (*event.GroupMetadata, error) {
	row := s.db.QueryRow(ctx, groupSelect+` WHERE id = ? AND auth_id = ?`, id, s.authID)
	g, err := scanGroup(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// All returns every group of the session.
func (s *GroupStore) All(ctx context.Context) ([]event.GroupMetadata, error) {
	rows, err := s.db.Query(ctx, groupSelect+` WHERE auth_id = ? ORDER BY id`, s.authID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.GroupMetadata
	for rows.Next() {
		g, err := scanGroup(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

const groupSelect = `
	SELECT id, subject, COALESCE(subject_owner,''), COALESCE(subject_time,0), COALESCE(owner,''),
	       COALESCE(creation,0), COALESCE(description,''), COALESCE(desc_owner,''),
	       COALESCE(restrict_mode,0), COALESCE(announce,0), COALESCE(size,0), participants,
	       COALESCE(ephemeral_duration,0), COALESCE(invite_code,'')
	FROM groups`

func scanGroup(scan func(...any) error) (*event.GroupMetadata, error) {
	var g event.GroupMetadata
	var restrict, announce int
	var participants sql.NullString
	if err := scan(&g.ID, &g.Subject, &g.SubjectOwner, &g.SubjectTime, &g.Owner,
		&g.Creation, &g.Desc, &g.DescOwner, &restrict, &announce, &g.Size,
		&participants, &g.EphemeralDuration, &g.InviteCode); err != nil {
		return nil, err
	}
	g.Restrict = restrict != 0
	g.Announce = announce != 0
	if participants.Valid && participants.String != "" {
		if err := json.Unmarshal([]byte(participants.String), &g.Participants); err != nil {
			return nil, fmt.Errorf("decode group participants: %w", err)
		}
	}
	return &g, nil
}
