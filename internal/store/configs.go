package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LonxunQuantum/CASMcode/internal/ident"
	"github.com/LonxunQuantum/CASMcode/internal/lattice"
)

// ConfigRecord is a stored configuration.
type ConfigRecord struct {
	ID            int64
	Name          string
	Supercell     string
	Dims          [3]int
	Occupation    []int
	Fingerprint   string
	IsPrimitive   bool
	PrimitiveName string
}

// State returns the record as a configuration snapshot.
func (r ConfigRecord) State() lattice.State {
	return lattice.State{Supercell: r.Supercell, Dims: r.Dims, Occupation: r.Occupation}
}

// ErrNotFound is returned when a named configuration does not exist.
var ErrNotFound = errors.New("not found")

// SaveConfiguration stores c as given (callers pass the canonical form) and
// returns its record. inserted is false when a configuration with the same
// fingerprint already existed; the existing record is returned unchanged.
func (s *Store) SaveConfiguration(ctx context.Context, c *lattice.Configuration) (rec ConfigRecord, inserted bool, err error) {
	scel := c.Supercell
	fp, err := ident.ConfigurationFingerprint(scel.Dims(), c.Occ)
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: %w", err)
	}
	occJSON, err := ident.MarshalCanonical(c.Occ)
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	scelID, err := supercellID(ctx, tx, scel)
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: %w", err)
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM configurations WHERE supercell_id = ?`, scelID).Scan(&n); err != nil {
		return rec, false, fmt.Errorf("save configuration: count: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO configurations (name, supercell_id, occupation, fingerprint, is_primitive)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fmt.Sprintf("%s/%d", scel.Name(), n), scelID, string(occJSON), fp, lattice.IsPrimitive(c))
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: insert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: rows affected: %w", err)
	}

	rec, err = scanConfig(tx.QueryRowContext(ctx, configSelect+` WHERE c.fingerprint = ?`, fp))
	if err != nil {
		return rec, false, fmt.Errorf("save configuration: read back: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return rec, false, fmt.Errorf("save configuration: commit: %w", err)
	}
	return rec, affected > 0, nil
}

// SetPrimitive links a configuration to the stored form of its primitive
// reduction.
func (s *Store) SetPrimitive(ctx context.Context, configID, primitiveID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE configurations SET primitive_id = ? WHERE id = ? AND primitive_id IS NULL`,
		primitiveID, configID)
	if err != nil {
		return fmt.Errorf("set primitive: %w", err)
	}
	return nil
}

// HasFingerprint reports whether a configuration with fingerprint fp exists.
func (s *Store) HasFingerprint(ctx context.Context, fp string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM configurations WHERE fingerprint = ?`, fp).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return true, nil
}

// Fingerprints returns the fingerprint of every stored configuration.
func (s *Store) Fingerprints(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint FROM configurations ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// LookupConfiguration returns the named configuration's snapshot.
func (s *Store) LookupConfiguration(ctx context.Context, name string) (lattice.State, error) {
	rec, err := scanConfig(s.db.QueryRowContext(ctx, configSelect+` WHERE c.name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return lattice.State{}, fmt.Errorf("configuration %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return lattice.State{}, fmt.Errorf("lookup configuration %q: %w", name, err)
	}
	return rec.State(), nil
}

// ListConfigurations returns every stored configuration in insertion order.
func (s *Store) ListConfigurations(ctx context.Context) ([]ConfigRecord, error) {
	rows, err := s.db.QueryContext(ctx, configSelect+` ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	out := []ConfigRecord{}
	for rows.Next() {
		rec, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}
	return out, nil
}

const configSelect = `
	SELECT c.id, c.name, s.name, s.d0, s.d1, s.d2, c.occupation, c.fingerprint, c.is_primitive,
	       COALESCE(p.name, '')
	FROM configurations c
	JOIN supercells s ON c.supercell_id = s.id
	LEFT JOIN configurations p ON c.primitive_id = p.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (ConfigRecord, error) {
	var rec ConfigRecord
	var occ string
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Supercell, &rec.Dims[0], &rec.Dims[1], &rec.Dims[2],
		&occ, &rec.Fingerprint, &rec.IsPrimitive, &rec.PrimitiveName); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(occ), &rec.Occupation); err != nil {
		return rec, fmt.Errorf("decode occupation of %s: %w", rec.Name, err)
	}
	return rec, nil
}

// supercellID returns the id of scel's row, inserting it if needed.
func supercellID(ctx context.Context, tx *sql.Tx, scel *lattice.Supercell) (int64, error) {
	d := scel.Dims()
	fp, err := ident.SupercellFingerprint(d, scel.Prim().OccupantNames())
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO supercells (name, d0, d1, d2, fingerprint)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, scel.Name(), d[0], d[1], d[2], fp); err != nil {
		return 0, fmt.Errorf("insert supercell: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM supercells WHERE name = ?`, scel.Name()).Scan(&id); err != nil {
		return 0, fmt.Errorf("read supercell: %w", err)
	}
	return id, nil
}
