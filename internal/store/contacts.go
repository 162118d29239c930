package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vspok/wabottle/internal/event"
)

// Contact is a stored contact. ImgURL is nil until a profile picture has
// been fetched at least once; an empty non-nil value means "fetched and
// the party has none", which is distinct from never having asked.
type Contact struct {
	ID           string
	Name         string
	Notify       string
	VerifiedName string
	ImgURL       *string
	Status       string
}

// ContactStore handles contact rows of one session.
type ContactStore struct {
	db     *DB
	authID int64
}

// NewContactStore creates a ContactStore scoped to one session.
func NewContactStore(db *DB, authID int64) *ContactStore {
	return &ContactStore{db: db, authID: authID}
}

// Upsert inserts or patch-merges contacts by (id, auth_id). Fields absent
// from the incoming record keep their stored value.
func (s *ContactStore) Upsert(ctx context.Context, contacts []event.Contact) error {
	for _, c := range contacts {
		if c.ID == "" {
			continue
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO contacts(auth_id, id, name, notify, verified_name, img_url, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, auth_id) DO UPDATE SET
				name=COALESCE(excluded.name, contacts.name),
				notify=COALESCE(excluded.notify, contacts.notify),
				verified_name=COALESCE(excluded.verified_name, contacts.verified_name),
				img_url=COALESCE(excluded.img_url, contacts.img_url),
				status=COALESCE(excluded.status, contacts.status)
		`, s.authID, c.ID, nullString(c.Name), nullString(c.Notify),
			nullString(c.VerifiedName), nullString(c.ImgURL), nullString(c.Status)); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the contact by id, or nil when unseen.
func (s *ContactStore) Get(ctx context.Context, id string) (*Contact, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, COALESCE(name,''), COALESCE(notify,''), COALESCE(verified_name,''), img_url, COALESCE(status,'')
		FROM contacts WHERE id = ? AND auth_id = ?
	`, id, s.authID)
	c, err := scanContact(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// All returns every contact of the session.
func (s *ContactStore) All(ctx context.Context) ([]Contact, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(name,''), COALESCE(notify,''), COALESCE(verified_name,''), img_url, COALESCE(status,'')
		FROM contacts WHERE auth_id = ? ORDER BY id
	`, s.authID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetImageURL records the result of a profile picture fetch. Unlike Upsert
// it stores empty values too, marking the contact as fetched-and-empty.
func (s *ContactStore) SetImageURL(ctx context.Context, id, url string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE contacts SET img_url = ? WHERE id = ? AND auth_id = ?
	`, url, id, s.authID)
	return err
}

func scanContact(scan func(...any) error) (*Contact, error) {
	var c Contact
	var img sql.NullString
	if err := scan(&c.ID, &c.Name, &c.Notify, &c.VerifiedName, &img, &c.Status); err != nil {
		return nil, err
	}
	if img.Valid {
		c.ImgURL = &img.String
	}
	return &c, nil
}
