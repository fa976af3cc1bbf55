package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Vault string
	Fname string
	// Path is relative to the workspace root.
	Path      string
	NoteID    string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// Ref returns the row's note address.
func (n NoteRow) Ref() models.NoteRef { return models.NoteRef{Vault: n.Vault, Fname: n.Fname} }

// GraphNode is one note in the link graph.
type GraphNode struct {
	Ref    models.NoteRef
	NoteID string
	Title  string
}

// GraphLink is a link whose target note exists.
type GraphLink struct {
	From models.NoteRef
	To   models.NoteRef
}

// BrokenLink is a link whose target note does not exist.
type BrokenLink struct {
	From models.NoteRef
	To   models.NoteRef
}

// UpsertNote inserts or replaces a note and its outgoing links within a transaction.
func (db *DB) UpsertNote(n NoteRow, links []models.NoteRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (vault, fname, path, note_id, title, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vault, fname) DO UPDATE SET
			path       = excluded.path,
			note_id    = excluded.note_id,
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, n.Vault, n.Fname, n.Path, n.NoteID, n.Title, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE src_vault = ? AND src_fname = ?`, n.Vault, n.Fname); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (src_vault, src_fname, dst_vault, dst_fname) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, dst := range links {
			if _, err := stmt.Exec(n.Vault, n.Fname, dst.Vault, dst.Fname); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note and its outgoing links.
func (db *DB) DeleteNote(ref models.NoteRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM links WHERE src_vault = ? AND src_fname = ?`, ref.Vault, ref.Fname)
	_, _ = tx.Exec(`DELETE FROM notes WHERE vault = ? AND fname = ?`, ref.Vault, ref.Fname)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(ref models.NoteRef) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE vault = ? AND fname = ?`, ref.Vault, ref.Fname).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns one indexed note.
func (db *DB) GetNote(ref models.NoteRef) (*NoteRow, error) {
	var n NoteRow
	err := db.conn.QueryRow(`
		SELECT vault, fname, path, note_id, title, checksum, updated_at
		FROM notes WHERE vault = ? AND fname = ?
	`, ref.Vault, ref.Fname).Scan(&n.Vault, &n.Fname, &n.Path, &n.NoteID, &n.Title, &n.Checksum, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: note %s: %w", ref, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns a page of notes ordered by vault and fname, plus the
// total count. An empty vault lists every vault.
func (db *DB) ListNotes(vault string, limit, offset int) ([]NoteRow, int, error) {
	var total int
	if err := db.conn.QueryRow(
		`SELECT count(*) FROM notes WHERE ? = '' OR vault = ?`, vault, vault,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT vault, fname, path, note_id, title, checksum, updated_at
		FROM notes WHERE ? = '' OR vault = ?
		ORDER BY vault, fname
		LIMIT ? OFFSET ?
	`, vault, vault, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := rows.Scan(&n.Vault, &n.Fname, &n.Path, &n.NoteID, &n.Title, &n.Checksum, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// AllChecksums maps each fname of vault to its stored checksum.
func (db *DB) AllChecksums(vault string) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT fname, checksum FROM notes WHERE vault = ?`, vault)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var fname, cs string
		if err := rows.Scan(&fname, &cs); err != nil {
			return nil, err
		}
		out[fname] = cs
	}
	return out, rows.Err()
}

// Backlinks returns every note that links to ref.
func (db *DB) Backlinks(ref models.NoteRef) ([]models.NoteRef, error) {
	rows, err := db.conn.Query(`
		SELECT src_vault, src_fname FROM links
		WHERE dst_vault = ? AND dst_fname = ?
		ORDER BY src_vault, src_fname
	`, ref.Vault, ref.Fname)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

// Graph returns every note and every link between two indexed notes.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT vault, fname, note_id, title FROM notes ORDER BY vault, fname`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Ref.Vault, &n.Ref.Fname, &n.NoteID, &n.Title); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	edges, err := db.conn.Query(`
		SELECT l.src_vault, l.src_fname, l.dst_vault, l.dst_fname
		FROM links l
		JOIN notes n ON n.vault = l.dst_vault AND n.fname = l.dst_fname
		ORDER BY l.src_vault, l.src_fname, l.dst_vault, l.dst_fname
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer edges.Close()
	var links []GraphLink
	for edges.Next() {
		var l GraphLink
		if err := edges.Scan(&l.From.Vault, &l.From.Fname, &l.To.Vault, &l.To.Fname); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, edges.Err()
}

// BrokenLinks returns every link whose target is not indexed.
func (db *DB) BrokenLinks() ([]BrokenLink, error) {
	rows, err := db.conn.Query(`
		SELECT l.src_vault, l.src_fname, l.dst_vault, l.dst_fname
		FROM links l
		LEFT JOIN notes n ON n.vault = l.dst_vault AND n.fname = l.dst_fname
		WHERE n.fname IS NULL
		ORDER BY l.src_vault, l.src_fname, l.dst_vault, l.dst_fname
	`)
	if err != nil {
		return nil, fmt.Errorf("index: broken links: %w", err)
	}
	defer rows.Close()
	var out []BrokenLink
	for rows.Next() {
		var b BrokenLink
		if err := rows.Scan(&b.From.Vault, &b.From.Fname, &b.To.Vault, &b.To.Fname); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanRefs(rows *sql.Rows) ([]models.NoteRef, error) {
	var out []models.NoteRef
	for rows.Next() {
		var r models.NoteRef
		if err := rows.Scan(&r.Vault, &r.Fname); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
