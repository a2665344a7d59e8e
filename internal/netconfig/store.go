package netconfig

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// SQLiteStore implements zwave.ConfigStore on the controller database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ zwave.ConfigStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Save replaces the stored configuration for networkID with nodes.
// The whole replacement happens in one transaction; on error the previous
// configuration is left untouched.
func (s *SQLiteStore) Save(ctx context.Context, networkID uint32, nodes []zwave.NodeSnapshot) error {
	if err := validateSnapshot(networkID, nodes); err != nil {
		return err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Cascades to zwave_nodes and zwave_values.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM zwave_networks WHERE network_id = ?`, networkID,
		); err != nil {
			return fmt.Errorf("clearing network: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zwave_networks (network_id, saved_at) VALUES (?, ?)`,
			networkID, s.now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting network: %w", err)
		}

		for pos, n := range nodes {
			if err := insertNode(ctx, tx, pos, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving network %#08x: %w", networkID, err)
	}
	return nil
}

func validateSnapshot(networkID uint32, nodes []zwave.NodeSnapshot) error {
	seen := make(map[uint8]bool, len(nodes))
	for _, n := range nodes {
		if n.NetworkID != networkID {
			return fmt.Errorf("%w: node %d is on %#08x, saving %#08x", ErrNetworkMismatch, n.NodeID, n.NetworkID, networkID)
		}
		if seen[n.NodeID] {
			return fmt.Errorf("%w: node %d", ErrDuplicateNode, n.NodeID)
		}
		seen[n.NodeID] = true
	}
	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, pos int, n zwave.NodeSnapshot) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO zwave_nodes (network_id, node_id, position, polled) VALUES (?, ?, ?, ?)`,
		n.NetworkID, n.NodeID, pos, n.Polled,
	); err != nil {
		return fmt.Errorf("inserting node %d: %w", n.NodeID, err)
	}

	for vpos, v := range n.Values {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO zwave_values (network_id, node_id, command_class, value_index, position)
			VALUES (?, ?, ?, ?, ?)`,
			n.NetworkID, n.NodeID, v.CommandClass, v.Index, vpos,
		); err != nil {
			return fmt.Errorf("inserting value %s: %w", v, err)
		}
	}
	return nil
}

// Load returns the stored nodes for networkID in discovery order, each with
// its values in discovery order. A network that was never saved has no nodes.
func (s *SQLiteStore) Load(ctx context.Context, networkID uint32) ([]zwave.NodeSnapshot, error) {
	query := `
		SELECT n.node_id, n.polled, v.command_class, v.value_index
		FROM zwave_nodes n
		LEFT JOIN zwave_values v
			ON v.network_id = n.network_id AND v.node_id = n.node_id
		WHERE n.network_id = ?
		ORDER BY n.position, v.position`

	rows, err := s.db.QueryContext(ctx, query, networkID)
	if err != nil {
		return nil, fmt.Errorf("querying network %#08x: %w", networkID, err)
	}
	defer rows.Close()

	var nodes []zwave.NodeSnapshot
	for rows.Next() {
		var (
			nodeID       uint8
			polled       bool
			commandClass sql.NullInt64
			index        sql.NullInt64
		)
		if err := rows.Scan(&nodeID, &polled, &commandClass, &index); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}

		if len(nodes) == 0 || nodes[len(nodes)-1].NodeID != nodeID {
			nodes = append(nodes, zwave.NodeSnapshot{
				NetworkID: networkID,
				NodeID:    nodeID,
				Polled:    polled,
				Values:    []zwave.ValueID{},
			})
		}

		// LEFT JOIN: a node without values yields one row of NULLs.
		if commandClass.Valid {
			last := &nodes[len(nodes)-1]
			last.Values = append(last.Values, zwave.ValueID{
				NetworkID:    networkID,
				NodeID:       nodeID,
				CommandClass: uint8(commandClass.Int64),
				Index:        uint8(index.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}

	return nodes, nil
}
